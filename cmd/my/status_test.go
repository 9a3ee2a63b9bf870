package main

import (
	"strings"
	"testing"

	"github.com/zulandar/memeyard/internal/models"
	"github.com/zulandar/memeyard/internal/store"
)

func TestStatus_CountsEveryStatus(t *testing.T) {
	cfgPath, envPath := writeConfig(t)
	seedStore(t, cfgPath, func(st *store.Store) {
		if _, err := st.UpsertUser("u1"); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		var ids []string
		for i := 0; i < 3; i++ {
			sub, err := st.CreateSubmission("u1", "https://cdn.example/img.png")
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			ids = append(ids, sub.ID)
		}
		if _, err := st.UpdateStatus(ids[0], models.StatusApproved); err != nil {
			t.Fatalf("approve: %v", err)
		}
	})

	out, err := run(t, "status", "-c", cfgPath, "--env-file", envPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}

	lines := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		f := strings.Fields(line)
		if len(f) == 2 {
			lines[f[0]] = f[1]
		}
	}
	want := map[string]string{"uploaded": "2", "approved": "1", "rejected": "0", "posted": "0", "total": "3"}
	for k, v := range want {
		if lines[k] != v {
			t.Errorf("%s = %q, want %q (output: %s)", k, lines[k], v, out)
		}
	}
}
