package mail

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildReminderMessage(t *testing.T) {
	m := BuildReminderMessage("clinic@example.com", Reminder{
		Email:     "owner@example.com",
		OwnerName: "Ana <script>",
		PetName:   "Toby",
		Date:      "2030-06-04",
		Time:      "09:30",
		Type:      "dental_cleaning",
	})

	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "owner@example.com" {
		t.Fatalf("unexpected To header %v", got)
	}
	if got := m.GetHeader("Subject"); len(got) != 1 || got[0] != "Appointment reminder" {
		t.Fatalf("unexpected Subject header %v", got)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := buf.String()
	for _, want := range []string{"Toby", "2030-06-04", "09:30", "dental cleaning", "Ana &lt;script&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("message does not contain %q", want)
		}
	}
}
