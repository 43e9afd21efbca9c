package app

import (
	"sync"

	"distributed-unit/internal/common/logger"
	ducontext "distributed-unit/internal/context"
	"distributed-unit/internal/context/cu"
	"distributed-unit/pkg/f1ap"
)

const firstCRnti f1ap.Rnti = 0x4601

// localManager stands in for the MAC/scheduler side when the binary runs on
// its own: it accepts every request at once.
type localManager struct {
	*logger.Logger
	mu        sync.Mutex
	nextCRnti f1ap.Rnti
}

func newLocalManager(l *logger.Logger) *localManager {
	return &localManager{Logger: l, nextCRnti: firstCRnti}
}

func (m *localManager) RequestUeCreation(req ducontext.UeCreationRequest) <-chan ducontext.UeCreationResponse {
	crnti := req.CRnti
	if crnti == 0 {
		m.mu.Lock()
		crnti = m.nextCRnti
		m.nextCRnti++
		if m.nextCRnti >= 0xfff0 {
			m.nextCRnti = firstCRnti
		}
		m.mu.Unlock()
	}
	ch := make(chan ducontext.UeCreationResponse, 1)
	ch <- ducontext.UeCreationResponse{Created: true, CRnti: crnti}
	return ch
}

func (m *localManager) RequestUeContextUpdate(req ducontext.UeContextUpdateRequest) <-chan ducontext.UeContextUpdateResponse {
	resp := ducontext.UeContextUpdateResponse{Result: true}
	for _, d := range req.DrbsToSetup {
		resp.DrbsSetup = append(resp.DrbsSetup, f1ap.DrbSetup{DrbId: d.DrbId})
	}
	cellGroup, err := cu.DefaultCellGroupConfig()
	if err != nil {
		m.Error("ue_index=%d: %v", req.UeIndex, err)
	}
	resp.DuToCuRrcInfo = cellGroup

	ch := make(chan ducontext.UeContextUpdateResponse, 1)
	ch <- resp
	return ch
}

func (m *localManager) RequestUeRemoval(req ducontext.UeRemovalRequest) <-chan struct{} {
	m.Debug("Freeing lower layers of ue_index=%d", req.UeIndex)
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (m *localManager) NotifyReestablishment(newUe, oldUe f1ap.DuUeIndex) {
	m.Info("ue_index=%d reestablishes ue_index=%d", newUe, oldUe)
}

func (m *localManager) OnUeConfigApplied(ue f1ap.DuUeIndex) {
	m.Info("ue_index=%d applied its configuration", ue)
}

// rlcSink drops DL SDUs; there is no RLC entity behind a standalone DU-CP.
type rlcSink struct {
	*logger.Logger
}

func (r rlcSink) OnNewSdu(ue f1ap.DuUeIndex, srb f1ap.SrbId, sdu []byte) {
	r.Debug("DL %s SDU for ue_index=%d, %d bytes", srb, ue, len(sdu))
}
