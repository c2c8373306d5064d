package agent

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultStagesValid(t *testing.T) {
	defs := DefaultStages()
	if err := ValidateStages(defs); err != nil {
		t.Fatalf("default roster invalid: %v", err)
	}

	names := StageNames(defs)
	want := []string{"intake", "verification", "eligibility", "recommendation", "compliance", "action"}
	if len(names) != len(want) {
		t.Fatalf("stage count = %d, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("stage %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestLoadStages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	content := `stages:
  - name: intake
    role: Collect customer data.
    required_fields: [name, email]
    required_capabilities: [postgres.get_customer_by_email]
  - name: decision
    role: Decide.
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	defs, err := LoadStages(path)
	if err != nil {
		t.Fatalf("LoadStages: %v", err)
	}
	if len(defs) != 2 || defs[0].Name != "intake" || defs[1].Name != "decision" {
		t.Fatalf("unexpected roster: %+v", defs)
	}
	if len(defs[0].RequiredCapabilities) != 1 {
		t.Errorf("capabilities lost: %+v", defs[0])
	}
}

func TestLoadStagesRejectsBadRosters(t *testing.T) {
	cases := map[string]string{
		"empty":     `stages: []`,
		"no name":   "stages:\n  - role: x\n",
		"no role":   "stages:\n  - name: intake\n",
		"duplicate": "stages:\n  - name: a\n    role: x\n  - name: a\n    role: y\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stages.yaml")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadStages(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
