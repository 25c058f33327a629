package tool

import (
	"context"
	"encoding/json"
	"testing"
)

func echoTool(name string) Tool {
	return NewFuncTool(
		name,
		"echoes its input",
		ObjectSchema(map[string]PropertyDef{
			"text": {Type: "string", Description: "text to echo"},
		}, "text"),
		func(ctx context.Context, args json.RawMessage) (string, error) {
			return string(args), nil
		},
	)
}

func TestRegistryRegister(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if err := r.Register(echoTool("echo")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if !r.Has("echo") {
		t.Error("Has(echo) = false, want true")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}

	got, ok := r.Get("echo")
	if !ok || got.Name() != "echo" {
		t.Errorf("Get(echo) = %v, %v", got, ok)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r, _ := NewRegistry(echoTool("echo"))

	if err := r.Register(echoTool("echo")); err == nil {
		t.Error("Register() duplicate should fail")
	}
}

func TestRegistryRejectsInvalidSchema(t *testing.T) {
	bad := NewFuncTool("bad", "not an object", Schema{Type: "string"},
		func(ctx context.Context, args json.RawMessage) (string, error) {
			return "", nil
		})

	r, _ := NewRegistry()
	if err := r.Register(bad); err == nil {
		t.Error("Register() should reject non-object schema")
	}

	if err := r.Register(nil); err == nil {
		t.Error("Register(nil) should fail")
	}
}

func TestRegistryListSorted(t *testing.T) {
	r, _ := NewRegistry(echoTool("zebra"), echoTool("alpha"), echoTool("mango"))

	names := r.List()
	want := []string{"alpha", "mango", "zebra"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistryDefinitions(t *testing.T) {
	r, _ := NewRegistry(echoTool("echo"))

	defs := r.Definitions()
	if len(defs) != 1 {
		t.Fatalf("len(Definitions()) = %d, want 1", len(defs))
	}

	def := defs[0]
	if def.Name != "echo" {
		t.Errorf("Name = %q, want echo", def.Name)
	}
	if def.InputSchema["type"] != "object" {
		t.Errorf(`InputSchema["type"] = %v, want object`, def.InputSchema["type"])
	}
	props, ok := def.InputSchema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties has type %T", def.InputSchema["properties"])
	}
	if _, ok := props["text"]; !ok {
		t.Error("properties missing text")
	}
	required, ok := def.InputSchema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "text" {
		t.Errorf("required = %v", def.InputSchema["required"])
	}
}

func TestExecutionError(t *testing.T) {
	err := Errorf("city %q not found", "Atlantis")
	if !IsExecutionError(err) {
		t.Error("IsExecutionError() = false, want true")
	}
	if err.Error() != `city "Atlantis" not found` {
		t.Errorf("Error() = %q", err.Error())
	}

	if IsExecutionError(context.Canceled) {
		t.Error("IsExecutionError(context.Canceled) = true, want false")
	}
	if IsExecutionError(nil) {
		t.Error("IsExecutionError(nil) = true, want false")
	}
}
