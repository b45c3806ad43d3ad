package dian

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-core/internal/application/filing"
)

var _ filing.Submitter = (*DevSubmitter)(nil)

// DevSubmitter simula la DIAN en desarrollo (DIAN_APP_ENV=dev): recibe todo y lo acepta
// en la primera consulta. No hace llamadas de red.
type DevSubmitter struct {
	mu        sync.Mutex
	submitted map[string]string // trackID → nombre del ZIP
}

// NewDevSubmitter crea el simulador.
func NewDevSubmitter() *DevSubmitter {
	return &DevSubmitter{submitted: map[string]string{}}
}

// Submit valida que el ZIP se pueda armar y devuelve un TrackID simulado.
func (s *DevSubmitter) Submit(_ context.Context, fileName string, signedXML []byte) (*filing.SubmitResult, error) {
	if _, err := CompressXMLToZip(signedXML, xmlNameFor(fileName)); err != nil {
		return nil, err
	}
	trackID := "MOCK-" + uuid.New().String()
	s.mu.Lock()
	s.submitted[trackID] = fileName
	s.mu.Unlock()
	return &filing.SubmitResult{TrackID: trackID, Accepted: true}, nil
}

// Status acepta cualquier TrackID emitido por este simulador.
func (s *DevSubmitter) Status(_ context.Context, trackID string) (*filing.StatusResult, error) {
	s.mu.Lock()
	_, ok := s.submitted[trackID]
	s.mu.Unlock()
	if !ok {
		return &filing.StatusResult{Done: true, Errors: "TrackID desconocido: " + trackID}, nil
	}
	return &filing.StatusResult{Done: true, Accepted: true}, nil
}
