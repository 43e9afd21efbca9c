// Package bearer relays RRC PDUs between F1-C and the RLC entity of each SRB.
package bearer

import (
	"distributed-unit/internal/common/logger"
	"distributed-unit/internal/common/task"
	"distributed-unit/internal/common/utils"
	"distributed-unit/pkg/f1ap"
)

// SduNotifier delivers DL SDUs to the RLC entity of the bearer.
type SduNotifier interface {
	OnNewSdu(sdu []byte)
}

// UplinkNotifier receives what the bearer sends towards the CU.
type UplinkNotifier interface {
	OnUlRrcSdu(srb f1ap.SrbId, sdu []byte)
	OnDeliveryReport(srb f1ap.SrbId, trigger, delivered, transmitted f1ap.PdcpSn)
}

type Config struct {
	SrbId    f1ap.SrbId
	Executor task.Executor // the owning UE's strand
	Tx       SduNotifier
	Uplink   UplinkNotifier
	Logger   *logger.Logger
}

type ledgerEntry struct {
	sn      f1ap.PdcpSn
	report  bool
	waiters []chan bool
}

// SrbRelay is the F1-C side of one SRB. Lower layer notifications may arrive
// on any goroutine and are moved onto the UE executor; everything else must
// be called from that executor.
type SrbRelay struct {
	*logger.Logger
	srbId  f1ap.SrbId
	exec   task.Executor
	tx     SduNotifier
	uplink UplinkNotifier

	pending        []*ledgerEntry
	transmitted    f1ap.PdcpSn
	delivered      f1ap.PdcpSn
	hasTransmitted bool
	hasDelivered   bool
	closed         bool
}

func NewSrbRelay(cfg Config) *SrbRelay {
	l := cfg.Logger
	if l == nil {
		l = logger.InitLogger("", map[string]string{"mod": "srb"})
	}
	return &SrbRelay{
		Logger: l.With("srb", cfg.SrbId.String()),
		srbId:  cfg.SrbId,
		exec:   cfg.Executor,
		tx:     cfg.Tx,
		uplink: cfg.Uplink,
	}
}

func (s *SrbRelay) SrbId() f1ap.SrbId { return s.srbId }

// HandleDlPdu forwards a DL RRC container to RLC. With reportDelivery set the
// container's PDCP SN is recorded and reported once it is delivered. The SN
// is returned when it could be read.
func (s *SrbRelay) HandleDlPdu(pdu []byte, reportDelivery bool) (f1ap.PdcpSn, bool) {
	if s.closed {
		s.Warn("Discarding DL PDU, bearer closed")
		return 0, false
	}
	var (
		sn    f1ap.PdcpSn
		hasSn bool
	)
	if s.srbId != f1ap.Srb0 {
		var err error
		sn, err = utils.SrbPdcpSn(pdu)
		hasSn = err == nil
		switch {
		case !hasSn && reportDelivery:
			s.Warn("Delivery status requested but SN unreadable: %v", err)
		case hasSn && reportDelivery:
			s.entry(sn).report = true
			s.Debug("Tracking delivery of PDCP SN=%d", sn)
		}
	}
	s.tx.OnNewSdu(pdu)
	return sn, hasSn
}

// WaitDelivery returns a channel that yields true once sn is delivered, or
// false if the bearer is closed first.
func (s *SrbRelay) WaitDelivery(sn f1ap.PdcpSn) <-chan bool {
	ch := make(chan bool, 1)
	switch {
	case s.closed:
		ch <- false
	case s.hasDelivered && utils.SnReached(sn, s.delivered):
		ch <- true
	default:
		e := s.entry(sn)
		e.waiters = append(e.waiters, ch)
	}
	return ch
}

// Pending is the number of ledger entries not yet delivered.
func (s *SrbRelay) Pending() int { return len(s.pending) }

// HandleSdu takes an UL RRC PDU from RLC.
func (s *SrbRelay) HandleSdu(sdu []byte) {
	s.exec.Post(func() {
		if s.closed {
			return
		}
		s.uplink.OnUlRrcSdu(s.srbId, sdu)
	})
}

// HandleTransmitNotification takes the highest PDCP SN handed to the lower
// layers.
func (s *SrbRelay) HandleTransmitNotification(highest f1ap.PdcpSn) {
	s.exec.Post(func() {
		if s.closed {
			return
		}
		if s.hasTransmitted && !utils.SnReached(s.transmitted, highest) {
			return
		}
		s.transmitted = highest
		s.hasTransmitted = true
	})
}

// HandleDeliveryNotification takes the highest PDCP SN acknowledged by the
// UE. Every ledger entry at or below it completes exactly once.
func (s *SrbRelay) HandleDeliveryNotification(highest f1ap.PdcpSn) {
	s.exec.Post(func() {
		if s.closed {
			return
		}
		if s.hasDelivered && !utils.SnReached(s.delivered, highest) {
			s.Debug("Ignoring stale delivery watermark %d < %d", highest, s.delivered)
			return
		}
		s.delivered = highest
		s.hasDelivered = true
		if !s.hasTransmitted || !utils.SnReached(highest, s.transmitted) {
			s.transmitted = highest
			s.hasTransmitted = true
		}

		kept := s.pending[:0]
		var done []*ledgerEntry
		for _, e := range s.pending {
			if utils.SnReached(e.sn, highest) {
				done = append(done, e)
			} else {
				kept = append(kept, e)
			}
		}
		for i := len(kept); i < len(s.pending); i++ {
			s.pending[i] = nil
		}
		s.pending = kept

		for _, e := range done {
			if e.report {
				s.uplink.OnDeliveryReport(s.srbId, e.sn, s.delivered, s.transmitted)
			}
			for _, w := range e.waiters {
				w <- true
			}
		}
	})
}

// Close cancels every outstanding ledger entry. Must run on the executor.
func (s *SrbRelay) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, e := range s.pending {
		for _, w := range e.waiters {
			w <- false
		}
	}
	s.pending = nil
}

func (s *SrbRelay) entry(sn f1ap.PdcpSn) *ledgerEntry {
	for _, e := range s.pending {
		if e.sn == sn {
			return e
		}
	}
	e := &ledgerEntry{sn: sn}
	s.pending = append(s.pending, e)
	return e
}
