package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dropDatabas3/creatorverse/internal/domain/repository"
)

// IdeaCount es cuántas ideas se piden y el máximo que se devuelve.
const IdeaCount = 60

var (
	listSep      = regexp.MustCompile(`[\n,]+`)
	lineSep      = regexp.MustCompile(`\n+`)
	numberPrefix = regexp.MustCompile(`^\s*\d+[.)]\s*`)
)

// IdeaInputs son las tres listas que se combinan en el prompt.
type IdeaInputs struct {
	Struggles []string
	Topics    []string
	Desires   []string
}

// IdeaInputsFrom extrae luchas y deseos del avatar y los temas de las ideas de cada pilar.
func IdeaInputsFrom(u *repository.CreatorUniverse) IdeaInputs {
	in := IdeaInputs{
		Struggles: ParseList(u.Avatar.Psychographic.Struggles),
		Desires:   ParseList(u.Avatar.Psychographic.Desires),
	}
	for _, p := range u.ContentPillars {
		for _, idea := range p.Ideas {
			if t := strings.TrimSpace(idea); t != "" {
				in.Topics = append(in.Topics, t)
			}
		}
	}
	return in
}

// Complete: hace falta al menos un elemento en cada lista.
func (in IdeaInputs) Complete() bool {
	return len(in.Struggles) > 0 && len(in.Topics) > 0 && len(in.Desires) > 0
}

func listSection(title string, items []string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString(":")
	for i, s := range items {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, s)
	}
	return b.String()
}

const ideasInstructions = `Generate 60 short-form content ideas by combining:
- one struggle
- one topic from my pillars
- one desire

Each idea should:
- clearly map to struggle → topic → desire
- feel practical and actionable

Output exactly 60 ideas. Format: one idea per line, numbered 1. through 60. Each line should be a single short idea (one sentence or short phrase).`

// Prompt arma el prompt de generación de ideas.
func (in IdeaInputs) Prompt() string {
	attached := strings.Join([]string{
		listSection("Struggles (target avatar)", in.Struggles),
		listSection("Topics (from my pillars / vision ideas)", in.Topics),
		listSection("Desires (target avatar)", in.Desires),
	}, "\n\n")
	return attached + "\n\n" + ideasInstructions
}

// ParseList separa texto libre por comas o saltos de línea.
func ParseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, s := range listSep.Split(raw, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseIdeas toma la respuesta numerada del modelo: una idea por línea, sin el
// "N." / "N)" inicial, sin vacías, a lo sumo IdeaCount.
func ParseIdeas(raw string) []string {
	ideas := make([]string, 0, IdeaCount)
	for _, line := range lineSep.Split(strings.TrimSpace(raw), -1) {
		line = strings.TrimSpace(numberPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		ideas = append(ideas, line)
		if len(ideas) == IdeaCount {
			break
		}
	}
	return ideas
}
