package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reconhq/recon-server/internal/analytics"
	"github.com/reconhq/recon-server/internal/inspection"
)

// A rating call without a usable actor must be rejected before the vehicle
// is loaded or mutated. The nil pool and nil engine make any early access
// panic, so passing here proves nothing was touched.
func TestRateItemRejectsMissingActorBeforeMutation(t *testing.T) {
	svc := NewVehicleService(nil, nil, zap.NewNop().Sugar())
	ctx := context.Background()

	for _, initials := range []string{"", "  ", "\t"} {
		_, err := svc.RateItem(ctx, uuid.New(), inspection.SectionMechanical, "brakes", inspection.RatingGreat, initials)
		if !errors.Is(err, analytics.ErrMissingActor) {
			t.Errorf("RateItem with initials %q: err=%v, want ErrMissingActor", initials, err)
		}
	}
}

func TestAllCompleted(t *testing.T) {
	if allCompleted(nil) {
		t.Error("empty status map must not count as completed")
	}

	status := map[string]inspection.SectionStatus{
		inspection.SectionEmissions: inspection.StatusCompleted,
		inspection.SectionPhotos:    inspection.StatusPending,
	}
	if allCompleted(status) {
		t.Error("pending section must block completion")
	}

	status[inspection.SectionPhotos] = inspection.StatusCompleted
	if !allCompleted(status) {
		t.Error("all sections completed must report true")
	}
}
