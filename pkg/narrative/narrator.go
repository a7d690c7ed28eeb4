package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ritzau/link-analyzer/pkg/kvstore"
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
)

// Narrative sources
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Narrative is a markdown investigative summary
type Narrative struct {
	Text        string    `json:"text"`
	Source      string    `json:"source"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

const systemPrompt = `Você é um analista de inteligência financeira. Escreva, em português e em markdown, ` +
	`um resumo investigativo objetivo de uma rede de vínculos: entidades centrais, padrões de ` +
	`relacionamento, possíveis indícios e próximos passos. Não invente dados que não estejam no resumo.`

// Narrator writes narratives through a Completer, caching model output.
type Narrator struct {
	completer Completer
	model     string
	cache     *kvstore.Cache
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Narrator
type Option func(*Narrator)

// WithCache caches model narratives by summary content.
func WithCache(c *kvstore.Cache) Option {
	return func(n *Narrator) { n.cache = c }
}

// WithModelName records the model name on generated narratives.
func WithModelName(name string) Option {
	return func(n *Narrator) { n.model = name }
}

// NewNarrator creates a narrator. A nil completer always yields the
// rule-based narrative.
func NewNarrator(c Completer, opts ...Option) *Narrator {
	n := &Narrator{completer: c, logger: logging.New("narrative"), now: time.Now}
	if oc, ok := c.(*OpenAICompleter); ok {
		if oc == nil {
			n.completer = nil
		} else {
			n.model = oc.Model()
		}
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Narrate describes g. Model failures are logged and replaced by the
// rule-based narrative, so it always returns text.
func (n *Narrator) Narrate(ctx context.Context, g *model.LinkGraph) Narrative {
	s := Summarize(g)
	if n.completer == nil {
		return n.fallback(s)
	}

	generate := func(ctx context.Context) (Narrative, error) {
		text, err := n.completer.Complete(ctx, systemPrompt, Prompt(s))
		if err != nil {
			return Narrative{}, err
		}
		return Narrative{Text: text, Source: SourceLLM, Model: n.model, GeneratedAt: n.now()}, nil
	}

	var (
		out Narrative
		err error
	)
	if n.cache != nil {
		out, err = kvstore.GetOrPopulate(ctx, n.cache, s.Key(), generate)
	} else {
		out, err = generate(ctx)
	}
	if err != nil {
		n.logger.Warn("narrative model failed, using fallback", "error", err)
		return n.fallback(s)
	}
	return out
}

func (n *Narrator) fallback(s Summary) Narrative {
	return Narrative{Text: Fallback(s), Source: SourceFallback, GeneratedAt: n.now()}
}

// Prompt renders the summary handed to the model.
func Prompt(s Summary) string {
	raw, _ := json.MarshalIndent(s, "", "  ")
	var b strings.Builder
	b.WriteString("Resumo da rede de vínculos (JSON):\n\n")
	b.Write(raw)
	b.WriteString("\n\nProduza a análise narrativa.")
	return b.String()
}

// Fallback writes a rule-based narrative from the summary alone.
func Fallback(s Summary) string {
	var b strings.Builder
	b.WriteString("## Análise da rede de vínculos\n\n")
	if s.TotalNodes == 0 {
		b.WriteString("Nenhum vínculo válido foi encontrado nos dados fornecidos.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "A rede possui **%d entidades** e **%d vínculos**, com densidade de %.4f e grau médio de %.2f.\n\n",
		s.TotalNodes, s.TotalEdges, s.Density, s.AverageDegree)
	switch {
	case s.Density >= 0.5:
		b.WriteString("A rede é **densa**: as entidades estão fortemente interligadas, o que sugere um grupo coeso.\n\n")
	case s.Density >= 0.1:
		b.WriteString("A rede tem **densidade moderada**.\n\n")
	default:
		b.WriteString("A rede é **esparsa**: os vínculos concentram-se em poucas entidades.\n\n")
	}

	if len(s.TopNodes) > 0 {
		b.WriteString("### Entidades centrais\n\n")
		for _, node := range s.TopNodes {
			fmt.Fprintf(&b, "- %s (%s): %d vínculos\n", node.Label, node.Type, node.Degree)
		}
		b.WriteString("\n")
		if top := s.TopNodes[0]; s.TotalEdges > 0 && float64(top.Degree) >= 0.5*float64(s.TotalEdges) {
			fmt.Fprintf(&b, "A entidade **%s** participa de pelo menos metade dos vínculos e deve ser priorizada.\n\n", top.Label)
		}
	}

	if len(s.NodeTypes) > 0 {
		fmt.Fprintf(&b, "Tipos de entidade: %s.\n\n", strings.Join(s.NodeTypes, ", "))
	}
	if len(s.EdgeTypes) > 0 {
		fmt.Fprintf(&b, "Tipos de vínculo: %s.\n\n", strings.Join(s.EdgeTypes, ", "))
	}

	b.WriteString("### Próximos passos\n\n")
	b.WriteString("- Verificar a documentação das entidades centrais.\n")
	b.WriteString("- Cruzar os vínculos com outras fontes de informação.\n")
	b.WriteString("\n_Análise gerada localmente, sem modelo de linguagem._\n")
	return b.String()
}
