package domain

import "time"

// ============================================================
// Relatórios (aggregation views)
// ============================================================

// Periodo is an inclusive date range filter. Zero bounds mean unbounded.
type Periodo struct {
	Inicio time.Time `json:"inicio,omitempty"`
	Fim    time.Time `json:"fim,omitempty"`
}

// Contains reports whether t falls inside the period (inclusive bounds).
func (p Periodo) Contains(t time.Time) bool {
	if !p.Inicio.IsZero() && t.Before(p.Inicio) {
		return false
	}
	if !p.Fim.IsZero() && t.After(p.Fim) {
		return false
	}
	return true
}

// FiltroPagamentos is a conjunction of optional payment predicates.
type FiltroPagamentos struct {
	Status         StatusPagamentoRegistro `json:"status,omitempty"`
	FormaPagamento FormaPagamento          `json:"formaPagamento,omitempty"`
	Periodo        Periodo                 `json:"periodo"`
}

// Matches applies every non-zero predicate.
func (f FiltroPagamentos) Matches(p Pagamento) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.FormaPagamento != "" && p.FormaPagamento != f.FormaPagamento {
		return false
	}
	return f.Periodo.Contains(p.DataPagamento)
}

// FiltroNotas is a conjunction of optional nota-fiscal predicates.
type FiltroNotas struct {
	Status      StatusNota       `json:"status,omitempty"`
	Regime      RegimeTributario `json:"regime,omitempty"`
	TipoServico string           `json:"tipoServico,omitempty"`
	Periodo     Periodo          `json:"periodo"`
}

// Matches applies every non-zero predicate.
func (f FiltroNotas) Matches(n NotaFiscal) bool {
	if f.Status != "" && n.Status != f.Status {
		return false
	}
	if f.Regime != "" && n.Regime != f.Regime {
		return false
	}
	if f.TipoServico != "" && n.TipoServico != f.TipoServico {
		return false
	}
	return f.Periodo.Contains(n.DataEmissao)
}

// GrupoPagamentos is the per-payment-method aggregation bucket.
type GrupoPagamentos struct {
	Quantidade int     `json:"quantidade"`
	Valor      float64 `json:"valor"`
}

// EstatisticasPagamentos summarizes the payments collection.
type EstatisticasPagamentos struct {
	Total           int     `json:"total"`
	Confirmados     int     `json:"confirmados"`
	Pendentes       int     `json:"pendentes"`
	Cancelados      int     `json:"cancelados"`
	ValorTotal      float64 `json:"valorTotal"`
	ValorConfirmado float64 `json:"valorConfirmado"`
	ValorPendente   float64 `json:"valorPendente"`
}

// RelatorioPagamentos is the filtered payment report.
type RelatorioPagamentos struct {
	Periodo           Periodo                            `json:"periodo"`
	TotalPagamentos   int                                `json:"totalPagamentos"`
	ValorTotal        float64                            `json:"valorTotal"`
	TicketMedio       float64                            `json:"ticketMedio"`
	PorFormaPagamento map[FormaPagamento]GrupoPagamentos `json:"porFormaPagamento"`
	Pagamentos        []Pagamento                        `json:"pagamentos"`
}

// GrupoRegime is the per-regime aggregation bucket.
type GrupoRegime struct {
	Quantidade    int     `json:"quantidade"`
	ValorServicos float64 `json:"valorServicos"`
	ValorImpostos float64 `json:"valorImpostos"`
}

// GrupoTipoServico is the per-service-type aggregation bucket.
type GrupoTipoServico struct {
	Quantidade    int     `json:"quantidade"`
	ValorServicos float64 `json:"valorServicos"`
}

// EstatisticasNotas summarizes the notas-fiscais collection.
type EstatisticasNotas struct {
	Total              int     `json:"total"`
	Emitidas           int     `json:"emitidas"`
	Enviadas           int     `json:"enviadas"`
	Canceladas         int     `json:"canceladas"`
	ValorTotalServicos float64 `json:"valorTotalServicos"`
	ValorTotalImpostos float64 `json:"valorTotalImpostos"`
	ValorTotalLiquido  float64 `json:"valorTotalLiquido"`
}

// RelatorioFiscal is the filtered fiscal report.
type RelatorioFiscal struct {
	Periodo            Periodo                          `json:"periodo"`
	TotalNotas         int                              `json:"totalNotas"`
	ValorBrutoServicos float64                          `json:"valorBrutoServicos"`
	ValorTotalImpostos float64                          `json:"valorTotalImpostos"`
	ValorLiquido       float64                          `json:"valorLiquido"`
	TicketMedio        float64                          `json:"ticketMedio"`
	Impostos           Impostos                         `json:"impostos"`
	PorRegime          map[RegimeTributario]GrupoRegime `json:"porRegime"`
	PorTipoServico     map[string]GrupoTipoServico      `json:"porTipoServico"`
	Notas              []NotaFiscal                     `json:"notas"`
}

// ResumoCobrancas summarizes the charges collection.
type ResumoCobrancas struct {
	TotalCobrancas     int     `json:"totalCobrancas"`
	CobrancasPagas     int     `json:"cobrancasPagas"`
	CobrancasPendentes int     `json:"cobrancasPendentes"`
	ValorTotal         float64 `json:"valorTotal"`
	ValorPago          float64 `json:"valorPago"`
	ValorPendente      float64 `json:"valorPendente"`
}

// ResumoGeral is the dashboard aggregate over all three collections.
type ResumoGeral struct {
	Cobrancas  ResumoCobrancas        `json:"cobrancas"`
	Pagamentos EstatisticasPagamentos `json:"pagamentos"`
	Notas      EstatisticasNotas      `json:"notasFiscais"`
}
