package domain

// Cliente is a customer record.
// CPF is stored as the formatted string the collaborator sends
// (e.g. "123.456.789-00"); checksum validation is not the core's job.
type Cliente struct {
	ID       int64  `json:"id"`
	Nome     string `json:"nome"`
	CPF      string `json:"cpf"`
	Telefone string `json:"telefone"`
}

// ClienteInput is the plain-data payload used to create or patch a cliente.
type ClienteInput struct {
	Nome     string `json:"nome"`
	CPF      string `json:"cpf"`
	Telefone string `json:"telefone"`
}

// ValidateCliente collects human-readable validation messages for a cliente payload.
func ValidateCliente(in *ClienteInput) []string {
	var erros []string
	if in.Nome == "" {
		erros = append(erros, "Nome é obrigatório")
	}
	if in.CPF == "" {
		erros = append(erros, "CPF é obrigatório")
	}
	return erros
}
