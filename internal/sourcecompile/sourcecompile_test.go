package sourcecompile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/classanalyser/classanalyser/internal/classinfo"
)

func writeSource(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "App.js")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExtractsExtendAndMembers(t *testing.T) {
	t.Parallel()
	src := `
qx.Class.define("app.App", {
  extend: app.Base,

  members: {
    /**
     * Says hello.
     *
     * @param name {String} who to greet
     * @return {String} the greeting
     */
    greet: function(name) {
      return "hello " + name;
    }
  }
});
`
	path := writeSource(t, src)
	f := New(&classinfo.Library{Namespace: "app"}, "app.App", path, path)
	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	info := &classinfo.ClassInfo{}
	f.WriteDbInfo(info)
	if info.Extends != "app.Base" {
		t.Errorf("Extends = %q, want app.Base", info.Extends)
	}

	meta := f.GetOuterClassMeta()
	greet, ok := meta.Members["greet"]
	if !ok {
		t.Fatal("expected greet member")
	}
	if greet.Type != classinfo.EntityFunction {
		t.Errorf("greet.Type = %v, want function", greet.Type)
	}
	if greet.JSDoc == nil || greet.JSDoc.Return != "String" {
		t.Fatalf("greet.JSDoc = %+v", greet.JSDoc)
	}
	if len(greet.JSDoc.Params) != 1 {
		t.Errorf("expected 1 param, got %v", greet.JSDoc.Params)
	}
}

func TestLoadExtractsPropertiesAndDependsOn(t *testing.T) {
	t.Parallel()
	src := `
qx.Class.define("app.App", {
  extend: app.Base,
  implement: [app.IRunnable],

  properties: {
    enabled: {
      check: "Boolean",
      init: true
    }
  },

  construct: function() {
    this.base(arguments);
    new app.ui.Button();
  },

  members: {
    run: function() {
      app.util.Helper.doThing();
    }
  }
});
`
	path := writeSource(t, src)
	f := New(&classinfo.Library{Namespace: "app"}, "app.App", path, path)
	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	info := &classinfo.ClassInfo{}
	f.WriteDbInfo(info)
	if len(info.Implement) != 1 || info.Implement[0] != "app.IRunnable" {
		t.Errorf("Implement = %v", info.Implement)
	}
	if !info.DependsOn["app.ui.Button"].Construct {
		t.Errorf("expected app.ui.Button construct dep, got %+v", info.DependsOn)
	}
	if !info.DependsOn["app.util.Helper"].Runtime {
		t.Errorf("expected app.util.Helper runtime dep, got %+v", info.DependsOn)
	}
	if !info.DependsOn["app.Base"].Load || !info.DependsOn["app.Base"].Construct {
		t.Errorf("expected app.Base load+construct dep (from extend), got %+v", info.DependsOn)
	}
	if !info.DependsOn["app.IRunnable"].Load {
		t.Errorf("expected app.IRunnable load dep (from implement), got %+v", info.DependsOn)
	}

	meta := f.GetOuterClassMeta()
	enabled, ok := meta.Properties["enabled"]
	if !ok {
		t.Fatal("expected enabled property")
	}
	if enabled.Check != classinfo.CheckBoolean {
		t.Errorf("enabled.Check = %q", enabled.Check)
	}
}

func TestLoadIncludeRecordsDep(t *testing.T) {
	t.Parallel()
	src := `
qx.Class.define("app.App", {
  include: [app.MLoggable],

  members: {
    run: function() {}
  }
});
`
	path := writeSource(t, src)
	f := New(&classinfo.Library{Namespace: "app"}, "app.App", path, path)
	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	info := &classinfo.ClassInfo{}
	f.WriteDbInfo(info)
	if len(info.Include) != 1 || info.Include[0] != "app.MLoggable" {
		t.Errorf("Include = %v", info.Include)
	}
	if !info.DependsOn["app.MLoggable"].Load {
		t.Errorf("expected app.MLoggable load dep (from include), got %+v", info.DependsOn)
	}
}

func TestLoadInterfaceSetsMetaType(t *testing.T) {
	t.Parallel()
	src := `
qx.Interface.define("app.IRunnable", {
  members: {
    run: function() {}
  }
});
`
	path := writeSource(t, src)
	f := New(&classinfo.Library{Namespace: "app"}, "app.IRunnable", path, path)
	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.GetOuterClassMeta().Type != "interface" {
		t.Errorf("Type = %q, want interface", f.GetOuterClassMeta().Type)
	}
}

func TestLoadCollectsTranslations(t *testing.T) {
	t.Parallel()
	src := `
qx.Class.define("app.App", {
  members: {
    greet: function() {
      return this.tr("Hello world");
    }
  }
});
`
	path := writeSource(t, src)
	f := New(&classinfo.Library{Namespace: "app"}, "app.App", path, path)
	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	info := &classinfo.ClassInfo{}
	f.WriteDbInfo(info)
	if len(info.Translations) != 1 || info.Translations[0].MsgID != "Hello world" {
		t.Fatalf("Translations = %v", info.Translations)
	}
}

func TestLoadMissingDefineCallIsParseError(t *testing.T) {
	t.Parallel()
	path := writeSource(t, "var x = 1;\n")
	f := New(&classinfo.Library{Namespace: "app"}, "app.App", path, path)
	if err := f.Load(context.Background()); err == nil {
		t.Fatal("expected parse error for a file with no define call")
	}
}
