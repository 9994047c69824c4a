package core

import "testing"

func TestExtractImageDirective(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantText string
		wantDesc string
		wantOK   bool
	}{
		{
			name:     "directive at end",
			input:    "Le tô se mange ainsi. <<IMAGE_GEN: plat de tô burkinabè>>",
			wantText: "Le tô se mange ainsi.",
			wantDesc: "plat de tô burkinabè",
			wantOK:   true,
		},
		{
			name:     "no directive",
			input:    "Le FESPACO se tient à Ouagadougou.",
			wantText: "Le FESPACO se tient à Ouagadougou.",
			wantDesc: "",
			wantOK:   false,
		},
		{
			name:     "directive mid-text",
			input:    "Voici le masque. <<IMAGE_GEN: masque Bobo traditionnel>> Il est sacré.",
			wantText: "Voici le masque.  Il est sacré.",
			wantDesc: "masque Bobo traditionnel",
			wantOK:   true,
		},
		{
			name:     "payload is trimmed",
			input:    "Regarde. <<IMAGE_GEN:   tissu Faso Dan Fani   >>",
			wantText: "Regarde.",
			wantDesc: "tissu Faso Dan Fani",
			wantOK:   true,
		},
		{
			name:     "empty payload is stripped but not generated",
			input:    "Pas d'image ici. <<IMAGE_GEN: >>",
			wantText: "Pas d'image ici.",
			wantDesc: "",
			wantOK:   false,
		},
		{
			name:     "only first directive is used",
			input:    "<<IMAGE_GEN: premier sujet>> suite <<IMAGE_GEN: second sujet>>",
			wantText: "suite <<IMAGE_GEN: second sujet>>",
			wantDesc: "premier sujet",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotText, gotDesc, gotOK := ExtractImageDirective(tt.input)
			if gotText != tt.wantText {
				t.Errorf("clean text = %q, want %q", gotText, tt.wantText)
			}
			if gotDesc != tt.wantDesc {
				t.Errorf("description = %q, want %q", gotDesc, tt.wantDesc)
			}
			if gotOK != tt.wantOK {
				t.Errorf("ok = %v, want %v", gotOK, tt.wantOK)
			}
		})
	}
}

func TestParseHeadlines(t *testing.T) {
	input := "Le Conseil des Ministres adopte un décret || court || Victoire des Étalons en éliminatoires ||  Hausse du prix du coton au Burkina  "
	got := parseHeadlines(input)

	want := []string{
		"Le Conseil des Ministres adopte un décret",
		"Victoire des Étalons en éliminatoires",
		"Hausse du prix du coton au Burkina",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d headlines, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("headline %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseHeadlinesAllNoise(t *testing.T) {
	if got := parseHeadlines("a || b || c"); got != nil {
		t.Errorf("expected nil for noise-only input, got %v", got)
	}
}
