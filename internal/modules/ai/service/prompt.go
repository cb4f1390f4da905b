package ai

import (
	"fmt"
	"strings"

	profileDto "greenhouse.org/growersplatform/internal/modules/profile/dto"
	roadmapDto "greenhouse.org/growersplatform/internal/modules/roadmap/dto"
)

const findGrowerSystem = `You help members of a greenhouse growers association find other growers to connect with.
Answer only from the directory entries provided. If none fit, say so and suggest how to broaden the search.
Keep the answer under 150 words and refer to growers by name and farm.`

const assessmentSystem = `You are a friendly advisor for commercial greenhouse operators.
Give practical, specific advice about climate control, irrigation, pest management, energy, labor, marketing and finance.
Ask a clarifying question when the grower's situation is unclear. Do not invent grant programs or prices.`

func findGrowerPrompt(query string, members []profileDto.MemberResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %s\n\nDirectory entries:\n", query)
	if len(members) == 0 {
		b.WriteString("(no matching members)\n")
	}
	for i, m := range members {
		fmt.Fprintf(&b, "%d. %s", i+1, m.FullName)
		if m.FarmName != nil && *m.FarmName != "" {
			fmt.Fprintf(&b, " of %s", *m.FarmName)
		}
		fmt.Fprintf(&b, " (%s", location(m))
		if m.FarmType != "" {
			fmt.Fprintf(&b, ", %s", m.FarmType)
		}
		b.WriteString(")")
		if len(m.CropTypes) > 0 {
			fmt.Fprintf(&b, "; grows %s", strings.Join(m.CropTypes, ", "))
		}
		if len(m.ClimateControls) > 0 {
			fmt.Fprintf(&b, "; uses %s", strings.Join(m.ClimateControls, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// directoryAnswer is shown when the model is unavailable.
func directoryAnswer(members []profileDto.MemberResponse) string {
	if len(members) == 0 {
		return "The AI assistant is unavailable right now and no directory members matched your request. Try different keywords or browse the member directory."
	}
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, fmt.Sprintf("%s (%s)", m.FullName, location(m)))
	}
	return "The AI assistant is unavailable right now. These members match your request: " + strings.Join(names, "; ") + "."
}

func location(m profileDto.MemberResponse) string {
	switch {
	case m.County != "" && m.State != "":
		return m.County + ", " + m.State
	case m.State != "":
		return m.State
	default:
		return "location not listed"
	}
}

func assessmentContext(r *roadmapDto.RoadmapResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n\nThe grower's latest farm assessment: overall score %d/100.", r.Profile.OverallScore)
	for _, cs := range r.Profile.CategoryScores {
		fmt.Fprintf(&b, "\n- %s: %d", cs.Category, cs.Score)
	}
	if len(r.Profile.Strengths) > 0 {
		fmt.Fprintf(&b, "\nStrengths: %s.", strings.Join(r.Profile.Strengths, ", "))
	}
	if len(r.Profile.ImprovementAreas) > 0 {
		fmt.Fprintf(&b, "\nImprovement areas: %s.", strings.Join(r.Profile.ImprovementAreas, ", "))
	}
	for i, rec := range r.Recommendations {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "\nPriority %d: %s", rec.Priority, rec.Title)
	}
	return b.String()
}
