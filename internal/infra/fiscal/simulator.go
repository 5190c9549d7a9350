// Package fiscal generates simulated nota fiscal identifiers locally.
// The numbers look plausible but have no legal validity.
package fiscal

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
)

// seriePadrao is the single emission series used by the simulator.
const seriePadrao = "001"

// Simulator is the offline fiscal authorizer. It is the default provider
// when no external gateway is configured.
type Simulator struct {
	now func() time.Time
}

// NewSimulator creates a Simulator on the system clock.
func NewSimulator() *Simulator {
	return &Simulator{now: time.Now}
}

// NewSimulatorAt creates a Simulator on an injected clock, for tests.
func NewSimulatorAt(now func() time.Time) *Simulator {
	return &Simulator{now: now}
}

// Name identifies the provider in logs and metrics.
func (s *Simulator) Name() string { return "simulador" }

// Authorize issues the simulated identifiers for a nota.
func (s *Simulator) Authorize(_ context.Context, _ *domain.NotaFiscal) (*domain.FiscalCredentials, error) {
	now := s.now()
	return &domain.FiscalCredentials{
		Numero:      generateNumero(now),
		Serie:       seriePadrao,
		ChaveAcesso: generateChaveAcesso(now),
		Protocolo:   generateProtocolo(now),
	}, nil
}

// generateNumero builds "YYYYMMDD" + a zero-padded 3-digit sequence.
func generateNumero(now time.Time) string {
	return fmt.Sprintf("%s%03d", now.Format("20060102"), rand.Intn(1000))
}

// generateChaveAcesso builds the 44-digit access key: millisecond timestamp
// followed by random digits up to length 44.
func generateChaveAcesso(now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d", now.UnixMilli()))
	for b.Len() < 44 {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	return b.String()[:44]
}

const protocoloAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// generateProtocolo builds "PROT" + timestamp + 4 random base-36 characters,
// uppercased.
func generateProtocolo(now time.Time) string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = protocoloAlphabet[rand.Intn(len(protocoloAlphabet))]
	}
	return strings.ToUpper(fmt.Sprintf("PROT%d%s", now.UnixMilli(), suffix))
}
