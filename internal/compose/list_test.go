package compose

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseStackList_Array(t *testing.T) {
	out := []byte(`[{"Name":"api","Status":"running(1)","ConfigFiles":"/srv/stacks/api/docker-compose.yml"},{"Name":"db","Status":"exited(2)","ConfigFiles":"/opt/db/compose.yml"}]`)

	records, err := ParseStackList(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []StackRecord{
		{Name: "api", Status: "running(1)", ConfigFiles: "/srv/stacks/api/docker-compose.yml"},
		{Name: "db", Status: "exited(2)", ConfigFiles: "/opt/db/compose.yml"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("records = %+v, want %+v", records, want)
	}
}

func TestParseStackList_Lines(t *testing.T) {
	out := []byte("{\"Name\":\"api\",\"Status\":\"running(1)\",\"ConfigFiles\":\"/a.yml\"}\n{\"Name\":\"web\",\"Status\":\"exited(1)\",\"ConfigFiles\":\"/b.yml\"}\n")

	records, err := ParseStackList(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[1].Name != "web" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestParseStackList_Empty(t *testing.T) {
	for _, out := range []string{"", "  \n", "[]"} {
		records, err := ParseStackList([]byte(out))
		if err != nil {
			t.Fatalf("ParseStackList(%q) error: %v", out, err)
		}
		if len(records) != 0 {
			t.Fatalf("ParseStackList(%q) = %+v, want empty", out, records)
		}
	}
}

func TestParseStackList_Malformed(t *testing.T) {
	inputs := []string{
		"NAME STATUS CONFIG FILES",
		`{"Name":"api"`,
		`[{"Name":"api"},`,
		`{"Status":"running(1)"}`,
	}
	for _, input := range inputs {
		_, err := ParseStackList([]byte(input))
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("ParseStackList(%q) expected ParseError, got %v", input, err)
		}
	}
}

func TestParseServiceList(t *testing.T) {
	out := []byte(`{"Name":"api-web-1","Service":"web","State":"running","Image":"nginx:1.25","Publishers":[{"URL":"0.0.0.0","TargetPort":80,"PublishedPort":8080,"Protocol":"tcp"},{"URL":"::","TargetPort":80,"PublishedPort":8080,"Protocol":"tcp"},{"URL":"","TargetPort":443,"PublishedPort":0,"Protocol":"tcp"}]}
{"Name":"api-db-1","Service":"db","State":"exited","Image":"postgres:16","Publishers":null}
`)

	records, err := ParseServiceList(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	ports := records[0].Ports()
	want := []Port{
		{Published: "8080", Target: 80, Protocol: "tcp"},
		{Target: 443, Protocol: "tcp"},
	}
	if !reflect.DeepEqual(ports, want) {
		t.Fatalf("ports = %+v, want %+v", ports, want)
	}
	if records[1].Ports() != nil {
		t.Fatalf("expected nil ports for db, got %+v", records[1].Ports())
	}
}

func TestParseServiceList_MissingService(t *testing.T) {
	_, err := ParseServiceList([]byte(`[{"Name":"x-1","State":"running"}]`))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseServiceList_Array(t *testing.T) {
	out := []byte(`[{"Name":"api-web-1","Service":"web","State":"running"},{"Name":"api-db-1","Service":"db","State":"exited"}]`)

	records, err := ParseServiceList(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[1].Service != "db" {
		t.Fatalf("unexpected records: %+v", records)
	}
}
