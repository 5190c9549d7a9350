package domain

// MetricasServico is the operational snapshot exposed by GET /v1/metrics/resumo.
// Values are cumulative since process start.
type MetricasServico struct {
	TotalRequisicoes      int64   `json:"totalRequisicoes"`
	TaxaErro              float64 `json:"taxaErro"`
	PagamentosRegistrados int64   `json:"pagamentosRegistrados"`
	NotasEmitidas         int64   `json:"notasEmitidas"`
	ErrosFiscais          int64   `json:"errosFiscais"`
	CacheHitRate          float64 `json:"cacheHitRate"`
	Periodo               string  `json:"periodo"`
}
