package domain

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================
// Notas Fiscais (simulated service invoices)
// ============================================================

// RegimeTributario is the fiscal regime under which a nota is taxed.
type RegimeTributario string

const (
	RegimeSimplesNacional RegimeTributario = "simples_nacional"
	RegimeLucroPresumido  RegimeTributario = "lucro_presumido"
	RegimeLucroReal       RegimeTributario = "lucro_real"
)

// StatusNota is the lifecycle status of a nota fiscal.
// Valid transitions: rascunho → emitida → enviada, and emitida|enviada → cancelada.
// Nothing leaves cancelada.
type StatusNota string

const (
	NotaRascunho  StatusNota = "rascunho"
	NotaEmitida   StatusNota = "emitida"
	NotaEnviada   StatusNota = "enviada"
	NotaCancelada StatusNota = "cancelada"
)

// PrazoCancelamento is the window after emission in which a nota may be cancelled.
const PrazoCancelamento = 24 * time.Hour

// Impostos breaks the computed taxes down by category.
type Impostos struct {
	ISS    float64 `json:"iss"`
	INSS   float64 `json:"inss"`
	IR     float64 `json:"ir"`
	COFINS float64 `json:"cofins"`
	PIS    float64 `json:"pis"`
	CSLL   float64 `json:"csll"`
	Total  float64 `json:"total"`
}

// CalculateTaxes is a pure function of the service value and the regime.
//
// simples_nacional taxes at the first Anexo III bracket: a flat 6% of the
// service value, of which roughly 40% is ISS. lucro_presumido applies each
// category independently. lucro_real is not computed here and yields zeros.
func CalculateTaxes(valorServico float64, regime RegimeTributario) Impostos {
	var imp Impostos

	switch regime {
	case RegimeSimplesNacional:
		imp.Total = valorServico * 6 / 100
		imp.ISS = imp.Total * 0.4
	case RegimeLucroPresumido:
		imp.ISS = valorServico * 5 / 100
		imp.INSS = valorServico * 11 / 100
		imp.IR = valorServico * 1.5 / 100
		imp.COFINS = valorServico * 3 / 100
		imp.PIS = valorServico * 0.65 / 100
		imp.CSLL = valorServico * 1 / 100
		imp.Total = imp.ISS + imp.INSS + imp.IR + imp.COFINS + imp.PIS + imp.CSLL
	}

	return imp
}

// NotaFiscal is a simulated tax invoice derived from a paid cobrança.
// Financial figures are immutable after creation; only Status (and the
// cancellation/sending stamps) transition afterwards.
type NotaFiscal struct {
	ID                 int64            `json:"id"`
	CobrancaID         int64            `json:"cobrancaId"`
	PagamentoID        int64            `json:"pagamentoId,omitempty"`
	ClienteID          int64            `json:"clienteId"`
	Numero             string           `json:"numero"`
	Serie              string           `json:"serie"`
	ValorServico       float64          `json:"valorServico"`
	DescricaoServico   string           `json:"descricaoServico"`
	TipoServico        string           `json:"tipoServico"`
	Regime             RegimeTributario `json:"regime"`
	Impostos           Impostos         `json:"impostos"`
	ValorTotal         float64          `json:"valorTotal"`
	ValorLiquido       float64          `json:"valorLiquido"`
	DataEmissao        time.Time        `json:"dataEmissao"`
	DataVencimento     time.Time        `json:"dataVencimento"`
	Status             StatusNota       `json:"status"`
	ChaveAcesso        string           `json:"chaveAcesso"`
	Protocolo          string           `json:"protocolo"`
	Observacoes        string           `json:"observacoes,omitempty"`
	Diretrizes         *Diretrizes      `json:"diretrizes,omitempty"`
	EmailEnvio         string           `json:"emailEnvio,omitempty"`
	DataEnvio          *time.Time       `json:"dataEnvio,omitempty"`
	MotivoCancelamento string           `json:"motivoCancelamento,omitempty"`
	DataCancelamento   *time.Time       `json:"dataCancelamento,omitempty"`
}

// NotaFiscalInput is the plain-data payload used to issue a nota fiscal.
type NotaFiscalInput struct {
	CobrancaID       int64            `json:"cobrancaId"`
	PagamentoID      int64            `json:"pagamentoId,omitempty"`
	ClienteID        int64            `json:"clienteId"`
	ValorServico     float64          `json:"valorServico"`
	DescricaoServico string           `json:"descricaoServico"`
	TipoServico      string           `json:"tipoServico,omitempty"`
	Regime           RegimeTributario `json:"regime,omitempty"`
}

// ValidateNotaFiscal collects validation messages for a nota payload.
func ValidateNotaFiscal(in *NotaFiscalInput) []string {
	var erros []string
	if in.CobrancaID == 0 {
		erros = append(erros, "Cobrança é obrigatória")
	}
	if in.ClienteID == 0 {
		erros = append(erros, "Cliente é obrigatório")
	}
	if in.ValorServico <= 0 {
		erros = append(erros, "Valor do serviço deve ser maior que zero")
	}
	if len(strings.TrimSpace(in.DescricaoServico)) < 10 {
		erros = append(erros, "Descrição do serviço deve ter pelo menos 10 caracteres")
	}
	return erros
}

// FiscalCredentials are the locally simulated (not legally valid) identifiers
// stamped on an issued nota.
type FiscalCredentials struct {
	Numero      string `json:"numero"`
	Serie       string `json:"serie"`
	ChaveAcesso string `json:"chaveAcesso"`
	Protocolo   string `json:"protocolo"`
}

// FormatNumero renders the display form "serie-numero".
func FormatNumero(n NotaFiscal) string {
	return fmt.Sprintf("%s-%s", n.Serie, n.Numero)
}

// FormatChaveAcesso groups the 44-character access key into blocks of four.
func FormatChaveAcesso(chave string) string {
	var b strings.Builder
	for i := 0; i < len(chave); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(chave) {
			end = len(chave)
		}
		b.WriteString(chave[i:end])
	}
	return b.String()
}

// NotaStatusLabel maps a nota status to its display label.
func NotaStatusLabel(s StatusNota) string {
	switch s {
	case NotaRascunho:
		return "Rascunho"
	case NotaEmitida:
		return "Emitida"
	case NotaEnviada:
		return "Enviada ao Cliente"
	case NotaCancelada:
		return "Cancelada"
	default:
		return "Status Desconhecido"
	}
}

// TipoServicoInfo describes a service type for the collaborator's selects.
type TipoServicoInfo struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Codigo string `json:"codigo"`
}

// TiposServico returns the municipal service-code catalog.
func TiposServico() []TipoServicoInfo {
	return []TipoServicoInfo{
		{Value: "consultoria", Label: "Consultoria Empresarial", Codigo: "17.23"},
		{Value: "desenvolvimento", Label: "Desenvolvimento de Software", Codigo: "01.07"},
		{Value: "design", Label: "Design e Criação", Codigo: "13.05"},
		{Value: "manutencao", Label: "Manutenção e Suporte", Codigo: "01.08"},
		{Value: "treinamento", Label: "Treinamento e Capacitação", Codigo: "08.01"},
		{Value: "marketing", Label: "Marketing Digital", Codigo: "17.06"},
	}
}

// RegimeInfo describes a fiscal regime for the collaborator's selects.
type RegimeInfo struct {
	Value     RegimeTributario `json:"value"`
	Label     string           `json:"label"`
	Descricao string           `json:"descricao"`
}

// RegimesTributarios returns the supported fiscal regimes.
func RegimesTributarios() []RegimeInfo {
	return []RegimeInfo{
		{Value: RegimeSimplesNacional, Label: "Simples Nacional", Descricao: "Regime simplificado para ME e EPP"},
		{Value: RegimeLucroPresumido, Label: "Lucro Presumido", Descricao: "Tributação baseada em percentual de presunção"},
		{Value: RegimeLucroReal, Label: "Lucro Real", Descricao: "Tributação baseada no lucro efetivo"},
	}
}

// ============================================================
// Guidance text and payment guides
// ============================================================

// Diretrizes carries the fiscal guidance attached to each nota.
type Diretrizes struct {
	Emissao      map[string]string `json:"emissao"`
	Impostos     map[string]string `json:"impostos"`
	Arquivamento map[string]string `json:"arquivamento"`
	Cancelamento map[string]string `json:"cancelamento"`
}

// BuildDiretrizes assembles the guidance block for a regime.
func BuildDiretrizes(regime RegimeTributario) *Diretrizes {
	return &Diretrizes{
		Emissao: map[string]string{
			"prazo":      "A nota fiscal deve ser emitida até 5 dias após a prestação do serviço",
			"documentos": "Manter cópias dos comprovantes de pagamento e contratos",
			"validade":   "Documento válido por 90 dias após a emissão",
		},
		Impostos: map[string]string{
			"recolhimento": "Impostos devem ser recolhidos até o dia 20 do mês subsequente",
			"regime":       "Regime tributário: " + strings.ToUpper(strings.ReplaceAll(string(regime), "_", " ")),
			"iss":          "ISS devido ao município onde o serviço foi prestado",
		},
		Arquivamento: map[string]string{
			"digital": "Manter arquivo digital por no mínimo 5 anos",
			"fisico":  "Cópia física opcional, mas recomendada",
			"backup":  "Realizar backup mensal dos documentos fiscais",
		},
		Cancelamento: map[string]string{
			"prazo":         "Cancelamento possível até 24h após emissão",
			"justificativa": "Necessário informar motivo do cancelamento",
			"substitutiva":  "Emitir nota substitutiva quando aplicável",
		},
	}
}

// BuildObservacoes assembles the observation line stamped on a nota.
func BuildObservacoes(regime RegimeTributario, tipoServico string) string {
	var obs []string
	if regime == RegimeSimplesNacional {
		obs = append(obs,
			"Documento emitido por ME/EPP optante pelo Simples Nacional.",
			"Não gera direito a crédito fiscal de IPI, ICMS, ISS e Contribuições Federais.",
		)
	}
	obs = append(obs,
		"Serviço prestado em conformidade com a legislação municipal vigente.",
		"Forma de pagamento conforme acordo comercial.",
	)
	if tipoServico == "consultoria" {
		obs = append(obs, "Consultoria especializada conforme escopo definido em contrato.")
	}
	return strings.Join(obs, " | ")
}

// GuiaRecolhimento is a derived payment guide for the taxes of a nota.
// It is computed on demand and never persisted.
type GuiaRecolhimento struct {
	NotaFiscal     string    `json:"notaFiscal"`
	DataVencimento time.Time `json:"dataVencimento"`
	Impostos       Impostos  `json:"impostos"`
	ValorTotal     float64   `json:"valorTotal"`
	CodigoBarras   string    `json:"codigoBarras"`
	Instrucoes     []string  `json:"instrucoesRecolhimento"`
}

// BuildGuiaRecolhimento derives the payment guide for an issued nota.
func BuildGuiaRecolhimento(n NotaFiscal, now time.Time) GuiaRecolhimento {
	return GuiaRecolhimento{
		NotaFiscal:     FormatNumero(n),
		DataVencimento: n.DataVencimento,
		Impostos:       n.Impostos,
		ValorTotal:     n.Impostos.Total,
		CodigoBarras:   BuildCodigoBarras(n, now),
		Instrucoes: []string{
			"Pagar até a data de vencimento para evitar multa e juros",
			"Código de receita conforme regime tributário",
			"Guardar comprovante de pagamento",
			"Enviar cópia para contabilidade",
		},
	}
}

// BuildCodigoBarras simulates a tax-collection barcode: a two-digit regime
// code, the last ten digits of the timestamp and the tax total in centavos,
// capped at 47 characters.
func BuildCodigoBarras(n NotaFiscal, now time.Time) string {
	ts := fmt.Sprintf("%d", now.UnixMilli())
	if len(ts) > 10 {
		ts = ts[len(ts)-10:]
	}
	valor := fmt.Sprintf("%08d", int64(n.Impostos.Total*100))
	regime := "02"
	if n.Regime == RegimeSimplesNacional {
		regime = "01"
	}
	code := regime + ts + valor
	if len(code) > 47 {
		code = code[:47]
	}
	return code
}
