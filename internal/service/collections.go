package service

// Store collection names. Each maps to one JSON array file in the data dir.
const (
	colClientes   = "clientes"
	colCobrancas  = "cobrancas"
	colPagamentos = "pagamentos"
	colNotas      = "notasFiscais"
)
