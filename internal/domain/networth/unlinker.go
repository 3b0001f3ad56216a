package networth

import "context"

// Unlinker detaches both the asset and the liability side of a connected
// account in one call. A connected account mirrors exactly one entry, but
// the caller does not know which side it landed on.
type Unlinker struct {
	Assets      AssetRepository
	Liabilities LiabilityRepository
}

// UnlinkConnectedAccount detaches any entry linked to the connected account,
// keeping it as a manual one.
func (u Unlinker) UnlinkConnectedAccount(ctx context.Context, connectedAccountID string) error {
	if err := u.Assets.UnlinkConnectedAccount(ctx, connectedAccountID); err != nil {
		return err
	}
	return u.Liabilities.UnlinkConnectedAccount(ctx, connectedAccountID)
}
