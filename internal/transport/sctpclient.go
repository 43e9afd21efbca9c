package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"distributed-unit/internal/common/logger"

	"github.com/alitto/pond/v2"
	"github.com/ishidawataru/sctp"
)

const (
	payloadSize               = 65535
	requestTimeout            = 2 * time.Second
	sctpDefaultNumOstreams    = 2
	sctpDefaultMaxInstreams   = 2
	sctpDefaultMaxAttempts    = 2
	sctpDefaultMaxInitTimeout = 2
	defaultChannelBuffer      = 5000
	defaultWriteWorkers       = 16

	F1AP_PPID uint32 = 62
)

var ErrNotConnected = errors.New("SCTP association not established")

type Options struct {
	LocalAddr  string
	RemoteAddr string
	OutStreams uint16
	InStreams  uint16
	Logger     *logger.Logger
}

// SctpConn is the DU end of the F1-C association. Writes are handed to a
// worker pool; reads are delivered, in order, on Read().
type SctpConn struct {
	localAddr  string
	remoteAddr string
	outStreams uint16
	inStreams  uint16
	conn       *sctp.SCTPConn

	ReadCh       chan []byte
	writeWorkers pond.Pool

	*logger.Logger
	Timeout time.Duration
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	writeMutex sync.Mutex
	closeOnce  sync.Once
}

func NewSctpConn(opts Options) (*SctpConn, error) {
	if opts.RemoteAddr == "" {
		return nil, fmt.Errorf("F1-C remote address is empty")
	}
	if opts.OutStreams == 0 {
		opts.OutStreams = sctpDefaultNumOstreams
	}
	if opts.InStreams == 0 {
		opts.InStreams = sctpDefaultMaxInstreams
	}
	if opts.Logger == nil {
		opts.Logger = logger.InitLogger("", map[string]string{"mod": "sctp"})
	}
	return &SctpConn{
		localAddr:  opts.LocalAddr,
		remoteAddr: opts.RemoteAddr,
		outStreams: opts.OutStreams,
		inStreams:  opts.InStreams,

		ReadCh:       make(chan []byte, defaultChannelBuffer),
		writeWorkers: pond.NewPool(defaultWriteWorkers),

		Logger:  opts.Logger,
		Timeout: requestTimeout,
	}, nil
}

func (sc *SctpConn) Connect(ctx context.Context) error {
	var laddr, raddr *sctp.SCTPAddr
	var err error

	if sc.localAddr != "" {
		laddr, err = sctp.ResolveSCTPAddr("sctp", sc.localAddr)
		if err != nil {
			return fmt.Errorf("resolve local addr: %w", err)
		}
	}

	raddr, err = sctp.ResolveSCTPAddr("sctp", sc.remoteAddr)
	if err != nil {
		return fmt.Errorf("resolve remote addr: %w", err)
	}

	sc.conn, err = sctp.DialSCTPExt("sctp", laddr, raddr, sctp.InitMsg{
		NumOstreams:    sc.outStreams,
		MaxInstreams:   sc.inStreams,
		MaxAttempts:    sctpDefaultMaxAttempts,
		MaxInitTimeout: sctpDefaultMaxInitTimeout,
	})
	if err != nil {
		return fmt.Errorf("dial SCTP: %w", err)
	}
	if err := sc.conn.SubscribeEvents(sctp.SCTP_EVENT_DATA_IO); err != nil {
		sc.conn.Close()
		return fmt.Errorf("subscribe SCTP events: %w", err)
	}
	sc.Info("F1-C association up with %s", sc.remoteAddr)

	var readCtx context.Context
	readCtx, sc.cancel = context.WithCancel(ctx)
	sc.wg.Add(1)
	go sc.readWorker(readCtx)
	return nil
}

// Streams is the number of outbound streams negotiated for the association.
func (sc *SctpConn) Streams() uint16 { return sc.outStreams }

func (sc *SctpConn) readWorker(ctx context.Context) {
	defer sc.wg.Done()
	defer close(sc.ReadCh)

	buf := make([]byte, payloadSize)
	for {
		n, info, err := sc.conn.SCTPRead(buf)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			sc.Error("[SCTP] Read error, closing association: %v", err)
			return
		}
		if n == 0 {
			continue
		}
		if info != nil && info.PPID != 0 && info.PPID != F1AP_PPID {
			sc.Warn("Wrong PPID %d, expected %d", info.PPID, F1AP_PPID)
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case sc.ReadCh <- data:
		case <-ctx.Done():
			return
		}
	}
}

// Send queues one F1AP PDU on the given stream.
func (sc *SctpConn) Send(data []byte, stream uint16) error {
	if sc.conn == nil {
		return ErrNotConnected
	}
	if stream >= sc.outStreams {
		stream %= sc.outStreams
	}
	sc.writeWorkers.Submit(func() {
		if err := sc.writeToConn(data, stream); err != nil {
			sc.Error("[SCTP] Write error on stream %d: %v", stream, err)
		}
	})
	return nil
}

func (sc *SctpConn) Read() <-chan []byte {
	return sc.ReadCh
}

func (sc *SctpConn) Close() error {
	sc.closeOnce.Do(func() {
		if sc.cancel != nil {
			sc.cancel()
		}
		sc.writeWorkers.StopAndWait()
		if sc.conn != nil {
			sc.conn.Close()
		}
	})
	sc.wg.Wait()
	return nil
}

// Only one PDU is written at a time
func (sc *SctpConn) writeToConn(data []byte, streamID uint16) error {
	sc.writeMutex.Lock()
	defer sc.writeMutex.Unlock()

	sc.conn.SetWriteDeadline(time.Now().Add(sc.Timeout))

	info := &sctp.SndRcvInfo{
		Stream: streamID,
		PPID:   F1AP_PPID,
	}

	_, err := sc.conn.SCTPWrite(data, info)
	return err
}
