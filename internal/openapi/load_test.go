package openapi

import "testing"

func TestTemplates(t *testing.T) {
	all, err := Templates()
	if err != nil {
		t.Fatalf("Templates error: %v", err)
	}
	if len(all) < 2 {
		t.Fatalf("expected at least 2 embedded templates, got %d", len(all))
	}
	for _, tpl := range all {
		if tpl.Name == "" || tpl.Doc == nil {
			t.Fatalf("bad template: %+v", tpl)
		}
		if issues := Validate(tpl.Doc); HasErrors(issues) {
			t.Fatalf("template %s has issues: %v", tpl.Name, issues)
		}
	}

	pet, err := TemplateByName("petstore")
	if err != nil {
		t.Fatal(err)
	}
	if got := len(ListOperations(pet)); got != 3 {
		t.Fatalf("petstore operations = %d, want 3", got)
	}
	if _, err := TemplateByName("nope"); err == nil {
		t.Fatalf("expected unknown template error")
	}
}
