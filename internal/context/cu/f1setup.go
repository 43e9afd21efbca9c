package cu

import (
	"context"

	"distributed-unit/pkg/f1ap"
)

// latestRrcVersionNumber is the Rel-15 major version, used in logs only.
const latestRrcVersionNumber = 15

// Setup runs F1 Setup until the CU accepts it or ctx ends. An unanswered
// request is repeated after the retry interval, a rejected one after the
// CU's time to wait when it gave one.
func (cu *GNBCU) Setup(ctx context.Context) error {
	cu.setState(CU_SETUP_PENDING)
	for attempt := 1; ; attempt++ {
		req := cu.newSetupRequest()
		cu.Info("Send F1 Setup Request (attempt %d, transaction %d, RRC v%d)", attempt, req.TransactionId, latestRrcVersionNumber)
		if err := cu.SendF1ap(req); err != nil {
			cu.setState(CU_DISCONNECTED)
			return err
		}

		wait := cu.setupRetry
		timer := cu.clock.NewTimer(cu.setupRetry)
		select {
		case <-ctx.Done():
			timer.Stop()
			cu.setState(CU_DISCONNECTED)
			return ctx.Err()
		case <-timer.Chan():
			cu.Warn("No F1 Setup Response within %v", cu.setupRetry)
			wait = 0
		case out := <-cu.setupCh:
			timer.Stop()
			switch m := out.(type) {
			case *f1ap.F1SetupResponse:
				cu.activate(m)
				return nil
			case *f1ap.F1SetupFailure:
				cu.Warn("F1 Setup rejected, cause %s", m.Cause)
				if m.TimeToWait > 0 {
					wait = m.TimeToWait
				}
			}
		}

		if wait == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			cu.setState(CU_DISCONNECTED)
			return ctx.Err()
		case <-cu.clock.After(wait):
		}
	}
}

func (cu *GNBCU) newSetupRequest() *f1ap.F1SetupRequest {
	cu.mu.Lock()
	cu.transactionId++
	id := cu.transactionId
	cu.mu.Unlock()
	return &f1ap.F1SetupRequest{
		TransactionId:    id,
		GnbDuId:          cu.gnbDuId,
		GnbDuName:        cu.gnbDuName,
		ServedCells:      cu.servedCells,
		LatestRrcVersion: latestRrcVersionNumber,
	}
}

func (cu *GNBCU) activate(resp *f1ap.F1SetupResponse) {
	cu.mu.Lock()
	cu.state = CU_ACTIVE
	cu.cuName = resp.GnbCuName
	cu.cellsToActivate = resp.CellsToActivate
	cu.mu.Unlock()
	cu.Info("F1 Setup successful with gNB-CU %q, %d cells to activate", resp.GnbCuName, len(resp.CellsToActivate))
}
