// internal/matcher/matcher_test.go
package matcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/permitwise/permitwise/internal/provider"
	"github.com/permitwise/permitwise/internal/types"
)

// newTestMatcher builds a matcher over a single scripted fake backend.
func newTestMatcher(t *testing.T, script ...provider.FakeReply) (*Matcher, *provider.FakeBackend) {
	t.Helper()
	fake := provider.NewFake("fake", script...)
	gw, err := provider.NewGateway(provider.ChainConfig{Default: "fake"}, []provider.Backend{fake}, nil)
	if err != nil {
		t.Fatalf("NewGateway() error = %v, want nil", err)
	}
	return New(gw, nil), fake
}

func TestDetectJurisdiction(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"clean answer", "Denver, CO", "Denver, CO"},
		{"quoted answer", `"Denver, CO"`, "Denver, CO"},
		{"multiline keeps first", "Denver, CO\nIt is the capital of Colorado.", "Denver, CO"},
		{"none sentinel", "NONE", ""},
		{"lowercase none", "none", ""},
		{"whitespace only", "   \n  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMatcher(t, provider.FakeReply{Text: tt.reply})
			got, err := m.DetectJurisdiction(context.Background(), "can I own a pitbull here?")
			if err != nil {
				t.Fatalf("DetectJurisdiction() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("DetectJurisdiction() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectJurisdiction_RequestShape(t *testing.T) {
	m, fake := newTestMatcher(t, provider.FakeReply{Text: "Denver, CO"})
	if _, err := m.DetectJurisdiction(context.Background(), "pitbulls in Denver?"); err != nil {
		t.Fatalf("DetectJurisdiction() error = %v, want nil", err)
	}
	if fake.CallCount() != 1 {
		t.Fatalf("CallCount = %d, want 1", fake.CallCount())
	}
	req := fake.Requests[0]
	if req.Temperature != 0 {
		t.Errorf("Temperature = %v, want 0", req.Temperature)
	}
	if len(req.Turns) != 1 || req.Turns[0].Content != "pitbulls in Denver?" {
		t.Errorf("Turns = %v, want single user turn with the message", req.Turns)
	}
	if req.SystemPrompt == "" {
		t.Errorf("SystemPrompt is empty")
	}
}

func TestDetectJurisdiction_ProviderErrorPropagates(t *testing.T) {
	m, _ := newTestMatcher(t, provider.FakeReply{Err: errors.New("down")})
	_, err := m.DetectJurisdiction(context.Background(), "pitbulls?")
	if !errors.Is(err, types.ErrProvidersExhausted) {
		t.Errorf("DetectJurisdiction() error = %v, want ErrProvidersExhausted", err)
	}
}

func TestMatchCategories(t *testing.T) {
	reply := `[
		{"category": "animals", "subcategory": "dogs", "question": "Can I own this dog breed?",
		 "confidence": 0.92, "requiredInputs": ["breed"]},
		{"category": "housing", "question": "Is this a housing question?", "confidence": 0.3},
		{"category": "", "confidence": 0.9}
	]`
	m, _ := newTestMatcher(t, provider.FakeReply{Text: reply})

	matches, err := m.MatchCategories(context.Background(), "can I own a pitbull?")
	if err != nil {
		t.Fatalf("MatchCategories() error = %v, want nil", err)
	}
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1 (floor and empty category filtered)", len(matches))
	}
	if matches[0].Category != "animals" || matches[0].Subcategory != "dogs" {
		t.Errorf("matches[0] = %+v, want animals/dogs", matches[0])
	}
	if len(matches[0].RequiredInputs) != 1 || matches[0].RequiredInputs[0] != "breed" {
		t.Errorf("RequiredInputs = %v, want [breed]", matches[0].RequiredInputs)
	}
}

func TestMatchCategories_SingleObjectSlip(t *testing.T) {
	reply := `{"category": "animals", "question": "Can I own this dog breed?", "confidence": 0.8}`
	m, _ := newTestMatcher(t, provider.FakeReply{Text: reply})

	matches, err := m.MatchCategories(context.Background(), "pitbull?")
	if err != nil {
		t.Fatalf("MatchCategories() error = %v, want nil", err)
	}
	if len(matches) != 1 || matches[0].Category != "animals" {
		t.Errorf("matches = %v, want single animals match", matches)
	}
}

func TestMatchCategories_Degradation(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"none sentinel", "NONE"},
		{"prose only", "I am not sure what category fits here."},
		{"wrong json shape", `"just a string"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMatcher(t, provider.FakeReply{Text: tt.reply})
			matches, err := m.MatchCategories(context.Background(), "pitbull?")
			if err != nil {
				t.Fatalf("MatchCategories() error = %v, want nil", err)
			}
			if len(matches) != 0 {
				t.Errorf("matches = %v, want empty", matches)
			}
		})
	}
}

func TestMatchCategories_CapsRequiredInputs(t *testing.T) {
	var fields []string
	for i := 0; i < types.MaxRequiredFields+10; i++ {
		fields = append(fields, `"f`+strings.Repeat("x", i%3)+`"`)
	}
	reply := `[{"category": "animals", "question": "q", "confidence": 0.9, "requiredInputs": [` +
		strings.Join(fields, ",") + `]}]`
	m, _ := newTestMatcher(t, provider.FakeReply{Text: reply})

	matches, err := m.MatchCategories(context.Background(), "pitbull?")
	if err != nil {
		t.Fatalf("MatchCategories() error = %v, want nil", err)
	}
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(matches))
	}
	if len(matches[0].RequiredInputs) != types.MaxRequiredFields {
		t.Errorf("len(RequiredInputs) = %d, want cap %d", len(matches[0].RequiredInputs), types.MaxRequiredFields)
	}
}

func TestExtractFields(t *testing.T) {
	reply := `Sure! {"breed": "pitbull", "dogCount": 2, "unrequested": "x", "zone": null}`
	m, _ := newTestMatcher(t, provider.FakeReply{Text: reply})

	got, err := m.ExtractFields(context.Background(), "I have two pitbulls", []string{"breed", "dogCount", "zone"})
	if err != nil {
		t.Fatalf("ExtractFields() error = %v, want nil", err)
	}
	if got["breed"] != "pitbull" {
		t.Errorf("breed = %v, want pitbull", got["breed"])
	}
	if got["dogCount"] != float64(2) {
		t.Errorf("dogCount = %v, want 2", got["dogCount"])
	}
	if got.Has("unrequested") {
		t.Errorf("unrequested field survived, want discarded")
	}
	if got.Has("zone") {
		t.Errorf("null field survived, want discarded")
	}
}

func TestExtractFields_EmptyRequestSkipsProvider(t *testing.T) {
	m, fake := newTestMatcher(t, provider.FakeReply{Text: "never used"})
	got, err := m.ExtractFields(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("ExtractFields() error = %v, want nil", err)
	}
	if len(got) != 0 {
		t.Errorf("ExtractFields() = %v, want empty", got)
	}
	if fake.CallCount() != 0 {
		t.Errorf("CallCount = %d, want 0", fake.CallCount())
	}
}

func TestExtractFields_Degradation(t *testing.T) {
	for _, reply := range []string{"NONE", "no values present", `[1, 2]` + "x}"} {
		m, _ := newTestMatcher(t, provider.FakeReply{Text: reply})
		got, err := m.ExtractFields(context.Background(), "hmm", []string{"breed"})
		if err != nil {
			t.Fatalf("ExtractFields(%q) error = %v, want nil", reply, err)
		}
		if len(got) != 0 {
			t.Errorf("ExtractFields(%q) = %v, want empty", reply, got)
		}
	}
}

func TestClarifyingQuestion(t *testing.T) {
	m, fake := newTestMatcher(t, provider.FakeReply{Text: "How many dogs live in your household?"})
	got, err := m.ClarifyingQuestion(context.Background(), "dogCount", []string{"breed"})
	if err != nil {
		t.Fatalf("ClarifyingQuestion() error = %v, want nil", err)
	}
	if got != "How many dogs live in your household?" {
		t.Errorf("ClarifyingQuestion() = %q, want scripted question", got)
	}
	req := fake.Requests[0]
	if !strings.Contains(req.SystemPrompt, "dogCount") {
		t.Errorf("SystemPrompt = %q, want field name mentioned", req.SystemPrompt)
	}
	if !strings.Contains(req.SystemPrompt, "breed") {
		t.Errorf("SystemPrompt = %q, want collected fields mentioned", req.SystemPrompt)
	}
}

func TestClarifyingQuestion_FallbackOnUnusableCompletion(t *testing.T) {
	for _, reply := range []string{"NONE", "  \n  "} {
		m, _ := newTestMatcher(t, provider.FakeReply{Text: reply})
		got, err := m.ClarifyingQuestion(context.Background(), "dogCount", nil)
		if err != nil {
			t.Fatalf("ClarifyingQuestion(%q) error = %v, want nil", reply, err)
		}
		if got != "Could you tell me the value for dog count?" {
			t.Errorf("ClarifyingQuestion(%q) = %q, want canned fallback", reply, got)
		}
	}
}
