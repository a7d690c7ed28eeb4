package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/ritzau/link-analyzer/pkg/document"
	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/tabular"
)

type recordingReporter struct {
	states   []string
	progress []tabular.Progress
}

func (r *recordingReporter) PublishStatus(state, message string, step, total int) {
	r.states = append(r.states, state)
}

func (r *recordingReporter) PublishProgress(p tabular.Progress) {
	r.progress = append(r.progress, p)
}

const tableCSV = `origem,destino,tipo,valor
João Silva,Maria Souza,transferencia,100
Maria Souza,Pedro Lima,pix,250
Pedro Lima,João Silva,ted,75
`

const intelText = `ENVOLVIDOS:
JOÃO DA SILVA - CPF 123.456.789-01

CRÉDITOS:
R$ 10.000,00 - 11.222.333/0001-44 BETA COMERCIO LTDA

DÉBITOS:
R$ 5.000,00 - MARIA SOUZA - CPF 987.654.321-00
`

func newTestRunner() *Runner {
	return NewRunner(WithExtractor(document.NewExtractor(&document.MockExecutor{MockError: errors.New("no pdftotext")})))
}

func TestRunTable(t *testing.T) {
	rep := &recordingReporter{}
	res, err := newTestRunner().Run(context.Background(), Request{
		File: model.NewFile("rede.csv", "text/csv", []byte(tableCSV)),
	}, rep)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Kind != KindTable {
		t.Errorf("Kind = %q, want table", res.Kind)
	}
	if res.Detection == nil || res.Detection.Source != "origem" || res.Detection.Target != "destino" {
		t.Errorf("Detection = %+v", res.Detection)
	}
	if res.Graph.Metadata.TotalEdges != 3 || res.Graph.Metadata.TotalNodes != 3 {
		t.Errorf("graph has %d nodes, %d edges", res.Graph.Metadata.TotalNodes, res.Graph.Metadata.TotalEdges)
	}
	if res.Insights == nil || len(res.Insights.CircularFlows) != 1 {
		t.Errorf("Insights = %+v, want one circular flow", res.Insights)
	}

	want := []string{StateParsing, StateDetecting, StateBuilding, StateAnalyzing, StateReady}
	if len(rep.states) != len(want) {
		t.Fatalf("states = %v, want %v", rep.states, want)
	}
	for i := range want {
		if rep.states[i] != want[i] {
			t.Errorf("states[%d] = %q, want %q", i, rep.states[i], want[i])
		}
	}
	if len(rep.progress) == 0 {
		t.Errorf("no row progress reported")
	}
}

func TestRunTableCustomMapping(t *testing.T) {
	f := model.NewFile("rede.csv", "text/csv", []byte(tableCSV))

	res, err := newTestRunner().Run(context.Background(), Request{
		File:    f,
		Kind:    KindTable,
		Mapping: &model.ColumnMapping{Source: "destino", Target: "origem"},
	}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Detection != nil {
		t.Errorf("custom mapping should skip detection")
	}
	if res.Graph.Edges[0].Source != "Maria Souza" {
		t.Errorf("first edge source = %q, want Maria Souza", res.Graph.Edges[0].Source)
	}

	_, err = newTestRunner().Run(context.Background(), Request{
		File:    f,
		Kind:    KindTable,
		Mapping: &model.ColumnMapping{Source: "origem", Target: "para"},
	}, nil)
	var mce *graph.MissingColumnsError
	if !errors.As(err, &mce) || len(mce.Columns) != 1 || mce.Columns[0] != "para" {
		t.Errorf("error = %v, want missing column para", err)
	}
}

func TestRunIntelAuto(t *testing.T) {
	res, err := newTestRunner().Run(context.Background(), Request{
		File: model.NewFile("relatorio.txt", "text/plain", []byte(intelText)),
	}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Kind != KindIntel {
		t.Fatalf("Kind = %q, want intel", res.Kind)
	}
	if res.Intel == nil || len(res.Intel.Credits) != 1 || len(res.Intel.Debits) != 1 {
		t.Fatalf("Intel = %+v", res.Intel)
	}
	if res.Graph.Metadata.TotalEdges != 2 {
		t.Errorf("graph has %d edges, want 2", res.Graph.Metadata.TotalEdges)
	}
}

func TestRunDocument(t *testing.T) {
	res, err := newTestRunner().Run(context.Background(), Request{
		File: model.NewFile("nota.txt", "", []byte("Uma nota curta, sem estrutura nenhuma, mas com texto suficiente para passar.")),
		Kind: KindDocument,
	}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Document == nil || res.Document.Fallback {
		t.Fatalf("Document = %+v", res.Document)
	}
	if res.Graph != nil || res.Insights != nil {
		t.Errorf("document run should not build a graph")
	}
}

func TestRunErrors(t *testing.T) {
	rep := &recordingReporter{}
	_, err := newTestRunner().Run(context.Background(), Request{
		File: model.NewFile("vazio.csv", "text/csv", nil),
		Kind: KindTable,
	}, rep)
	if !errors.Is(err, tabular.ErrEmptyFile) {
		t.Errorf("error = %v, want ErrEmptyFile", err)
	}
	if len(rep.states) == 0 || rep.states[len(rep.states)-1] != StateError {
		t.Errorf("states = %v, want trailing error", rep.states)
	}

	_, err = newTestRunner().Run(context.Background(), Request{Kind: "planilha"}, nil)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("error = %v, want ErrUnknownKind", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestRunner().Run(ctx, Request{
		File: model.NewFile("rede.csv", "text/csv", []byte(tableCSV)),
		Kind: KindTable,
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindAuto, false},
		{"table", KindTable, false},
		{"rif", KindRIF, false},
		{"intel", KindIntel, false},
		{"document", KindDocument, false},
		{"graph", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestRunRIFAuto(t *testing.T) {
	sheet := "CPF/CNPJ do Remetente;Nome do Remetente;Valor (R$);CPF/CNPJ Titular;Nome do Titular\n" +
		"123.456.789-01;Ana Souza;R$ 1.500,00;98.765.432/0001-10;Empresa X\n" +
		"111.222.333-44;Bruno Lima;R$ 2.000,00;98.765.432/0001-10;Empresa X\n"
	res, err := newTestRunner().Run(context.Background(), Request{
		File: model.NewFile("rif.csv", "text/csv", []byte(sheet)),
	}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Kind != KindRIF || res.RIF == nil {
		t.Fatalf("Kind = %q, RIF = %v", res.Kind, res.RIF)
	}
	if res.Graph.Metadata.TotalEdges != 2 {
		t.Errorf("graph has %d edges, want 2", res.Graph.Metadata.TotalEdges)
	}
}
