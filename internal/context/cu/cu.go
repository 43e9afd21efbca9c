// Package cu is the DU side of the F1-C association: the gNB-CU peer, its
// F1 Setup procedure and the PDU codec.
package cu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"distributed-unit/internal/common/logger"
	"distributed-unit/pkg/f1ap"

	"github.com/jonboulle/clockwork"
)

// CU peer states
const (
	CU_DISCONNECTED  string = "CU_DISCONNECTED"
	CU_SETUP_PENDING string = "CU_SETUP_PENDING"
	CU_ACTIVE        string = "CU_ACTIVE"
)

const defaultSetupRetry = 5 * time.Second

var ErrAssociationLost = errors.New("F1-C association lost")

// Transport carries encoded PDUs over the association.
type Transport interface {
	Send(data []byte, stream uint16) error
	Read() <-chan []byte
	Streams() uint16
}

// MessageHandler takes every decoded PDU that is not part of F1 Setup.
type MessageHandler interface {
	HandleMessage(msg f1ap.Message) error
}

type Options struct {
	GnbDuId     uint64
	GnbDuName   string
	ServedCells []f1ap.ServedCell
	Tnla        Transport
	Clock       clockwork.Clock
	SetupRetry  time.Duration
	Logger      *logger.Logger
}

// GNBCU represents the gNB-CU this DU is connected to.
type GNBCU struct {
	*logger.Logger
	gnbDuId     uint64
	gnbDuName   string
	servedCells []f1ap.ServedCell
	tnla        Transport
	clock       clockwork.Clock
	setupRetry  time.Duration

	setupCh chan f1ap.Message

	mu              sync.RWMutex
	state           string
	cuName          string
	cellsToActivate []f1ap.Nrcgi
	transactionId   uint8
}

func New(opts Options) (*GNBCU, error) {
	if opts.Tnla == nil {
		return nil, fmt.Errorf("CU peer needs a transport")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.SetupRetry <= 0 {
		opts.SetupRetry = defaultSetupRetry
	}
	if opts.Logger == nil {
		opts.Logger = logger.InitLogger("", map[string]string{"mod": "cu"})
	}
	return &GNBCU{
		Logger:      opts.Logger,
		gnbDuId:     opts.GnbDuId,
		gnbDuName:   opts.GnbDuName,
		servedCells: opts.ServedCells,
		tnla:        opts.Tnla,
		clock:       opts.Clock,
		setupRetry:  opts.SetupRetry,
		setupCh:     make(chan f1ap.Message, 1),
		state:       CU_DISCONNECTED,
	}, nil
}

// SendF1ap encodes msg and sends it to the CU.
func (cu *GNBCU) SendF1ap(msg f1ap.Message) error {
	b, err := Encode(msg)
	if err != nil {
		return err
	}
	return cu.tnla.Send(b, streamOf(msg, cu.tnla.Streams()))
}

// Run reads PDUs from the association until it closes or ctx ends. F1 Setup
// outcomes go to the running Setup, everything else to h.
func (cu *GNBCU) Run(ctx context.Context, h MessageHandler) error {
	rx := cu.tnla.Read()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-rx:
			if !ok {
				cu.setState(CU_DISCONNECTED)
				cu.Error("%v", ErrAssociationLost)
				return ErrAssociationLost
			}
			cu.handlePdu(data, h)
		}
	}
}

func (cu *GNBCU) handlePdu(data []byte, h MessageHandler) {
	msg, err := Decode(data)
	if err != nil {
		if errors.Is(err, ErrUnsupported) {
			cu.Warn("Dropping PDU: %v", err)
		} else {
			cu.Error("Dropping PDU: %v", err)
		}
		return
	}

	switch msg.(type) {
	case *f1ap.F1SetupResponse, *f1ap.F1SetupFailure:
		select {
		case cu.setupCh <- msg:
		default:
			cu.Warn("Unexpected %s, no F1 Setup in progress", msg.Name())
		}
		return
	}
	if !cu.IsActive() {
		cu.Warn("%s received before F1 Setup completed", msg.Name())
	}
	if err := h.HandleMessage(msg); err != nil {
		cu.Debug("%s: %v", msg.Name(), err)
	}
}

func (cu *GNBCU) State() string {
	cu.mu.RLock()
	defer cu.mu.RUnlock()
	return cu.state
}

// IsActive returns true once F1 Setup succeeded.
func (cu *GNBCU) IsActive() bool {
	return cu.State() == CU_ACTIVE
}

func (cu *GNBCU) Name() string {
	cu.mu.RLock()
	defer cu.mu.RUnlock()
	return cu.cuName
}

// CellsToActivate lists the cells the CU asked the DU to activate.
func (cu *GNBCU) CellsToActivate() []f1ap.Nrcgi {
	cu.mu.RLock()
	defer cu.mu.RUnlock()
	return append([]f1ap.Nrcgi(nil), cu.cellsToActivate...)
}

func (cu *GNBCU) setState(s string) {
	cu.mu.Lock()
	cu.state = s
	cu.mu.Unlock()
}
