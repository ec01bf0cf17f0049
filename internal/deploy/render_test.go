package deploy

import (
	"context"
	"reflect"
	"testing"

	"github.com/nholik/stackyard/internal/compose"
	"gopkg.in/yaml.v3"
)

func TestRender(t *testing.T) {
	out, err := Render(validRequest())
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}

	var decoded composeFile
	if err := yaml.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("rendered YAML does not parse: %v\n%s", err, out)
	}
	want := composeFile{Services: map[string]composeService{
		"web": {Image: "nginx:1.25", Ports: []string{"8080:80"}},
		"db":  {Image: "postgres:16"},
	}}
	if !reflect.DeepEqual(decoded, want) {
		t.Fatalf("decoded = %+v, want %+v", decoded, want)
	}

	if err := compose.ValidateDefinition(context.Background(), "shop", out); err != nil {
		t.Fatalf("rendered definition does not load: %v", err)
	}
}
