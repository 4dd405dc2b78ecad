package advisory

import (
	"context"
	"strings"
)

var severityBadges = map[string]string{
	"Low":       "🟢",
	"Medium":    "🟡",
	"High":      "🟠",
	"Emergency": "🔴",
}

const (
	immediateCareLine = "⚠️ **Please seek immediate medical attention.**"
	seeDoctorLine     = "⚕️ I recommend consulting a healthcare professional for proper evaluation."
)

// Reply is one assistant turn. Fallback marks the static apology.
type Reply struct {
	Content               string `json:"content"`
	Severity              string `json:"severity,omitempty"`
	RecommendedSpecialist string `json:"recommended_specialist,omitempty"`
	ImmediateCare         bool   `json:"should_seek_immediate_care,omitempty"`
	Urgency               string `json:"urgency,omitempty"`
	Fallback              bool   `json:"fallback,omitempty"`
}

// RenderTriage formats a triage result as the chat transcript shows it.
func RenderTriage(r *TriageResult) string {
	var b strings.Builder
	b.WriteString(r.Response)
	b.WriteString("\n\n**Severity Level:** ")
	b.WriteString(severityBadges[r.Severity])
	b.WriteString(" ")
	b.WriteString(r.Severity)
	if r.RecommendedSpecialist != "" {
		b.WriteString("\n\n**Recommended Specialist:** ")
		b.WriteString(r.RecommendedSpecialist)
	}
	if r.ShouldSeekImmediateCare {
		b.WriteString("\n\n")
		b.WriteString(immediateCareLine)
	}
	return b.String()
}

func RenderAnswer(a *HealthAnswer) string {
	if !a.ShouldSeeDoctor {
		return a.Answer
	}
	return a.Answer + "\n\n" + seeDoctorLine
}

// Chat serves the transient assistant conversations.
type Chat struct {
	adapter *Adapter
}

func NewChat(adapter *Adapter) *Chat {
	return &Chat{adapter: adapter}
}

// Triage never fails: any error becomes the fallback reply.
func (c *Chat) Triage(ctx context.Context, message string) Reply {
	r, err := Invoke[TriageResult](ctx, c.adapter, triagePrompt(message))
	if err != nil {
		return Reply{Content: c.adapter.Fallback(), Fallback: true}
	}
	return Reply{
		Content:               RenderTriage(r),
		Severity:              r.Severity,
		RecommendedSpecialist: r.RecommendedSpecialist,
		ImmediateCare:         r.ShouldSeekImmediateCare,
	}
}

func (c *Chat) Ask(ctx context.Context, question string) Reply {
	a, err := Invoke[HealthAnswer](ctx, c.adapter, askPrompt(question))
	if err != nil {
		return Reply{Content: c.adapter.Fallback(), Fallback: true}
	}
	return Reply{Content: RenderAnswer(a), Urgency: a.Urgency}
}
