package client

import (
	"context"
	"fmt"

	"roomsync/internal/models"
	"roomsync/internal/utils"
)

func (cli *Client) askPassword(ctx context.Context, room string, purpose models.PromptPurpose) (string, error) {
	if cli.prompter == nil {
		return "", utils.ErrAuthRequired.WithDetails("no password prompt available")
	}
	ans, err := cli.prompter.PromptPassword(ctx, room, purpose)
	if err != nil {
		return "", utils.ErrAuthRequired.Wrap(err)
	}
	if ans == nil || ans.Password == "" {
		return "", utils.ErrAuthRequired.WithDetails("cancelled")
	}
	return ans.Password, nil
}

func actionError(base *utils.ChatError, res models.ActionResult) error {
	msg := res.Error
	if msg == "" {
		msg = "unknown"
	}
	return base.WithDetails(msg)
}

// ClaimRoom asks for a password and claims room with it. On success the
// account caches are refreshed and a proof is minted so the room is usable
// right away.
func (cli *Client) ClaimRoom(ctx context.Context, room string) error {
	room, err := utils.NormalizeRoomID(room)
	if err != nil {
		return err
	}
	pw, err := cli.askPassword(ctx, room, models.PurposeClaim)
	if err != nil {
		return err
	}
	res, err := cli.Backend.ClaimChat(ctx, room, pw)
	if err != nil {
		cli.notifier.Error("Claim failed", err)
		return err
	}
	if !res.Success {
		err := actionError(ErrClaimFailed, res)
		cli.notifier.Error("Claim failed", err)
		return err
	}
	if err := cli.SyncAccount(ctx); err != nil {
		cli.logger.Warn().Err(err).Msg("[claims] refresh after claim")
	}
	if proof := cli.Auth.Proof(ctx, room); proof != "" {
		cli.notifier.Info("Claimed", fmt.Sprintf("Chat %q claimed and proof minted.", room))
	} else {
		cli.notifier.Info("Claimed", fmt.Sprintf("Chat %q claimed. Proof minting failed; switch into the room to retry.", room))
	}
	return nil
}

// UnclaimRoom releases the claim and drops the room's cached proof.
func (cli *Client) UnclaimRoom(ctx context.Context, room, adminKey string) error {
	room, err := utils.NormalizeRoomID(room)
	if err != nil {
		return err
	}
	res, err := cli.Backend.UnclaimChat(ctx, room, adminKey)
	if err != nil {
		cli.notifier.Error("Unclaim failed", err)
		return err
	}
	if !res.Success {
		err := actionError(ErrClaimFailed, res)
		cli.notifier.Error("Unclaim failed", err)
		return err
	}
	if err := cli.refreshClaims(ctx); err != nil {
		cli.logger.Warn().Err(err).Msg("[claims] refresh after unclaim")
	}
	cli.Auth.Proofs().Invalidate(room)
	cli.notifier.Info("Unclaimed", fmt.Sprintf("Chat %q unclaimed.", room))
	return nil
}

// UpdateClaimPassword asks for a new password for an owned room.
func (cli *Client) UpdateClaimPassword(ctx context.Context, room string) error {
	room, err := utils.NormalizeRoomID(room)
	if err != nil {
		return err
	}
	pw, err := cli.askPassword(ctx, room, models.PurposeUpdateClaim)
	if err != nil {
		return err
	}
	res, err := cli.Backend.UpdateClaimPassword(ctx, room, pw)
	if err != nil {
		cli.notifier.Error("Update failed", err)
		return err
	}
	if !res.Success {
		err := actionError(ErrClaimFailed, res)
		cli.notifier.Error("Update failed", err)
		return err
	}
	if err := cli.SyncAccount(ctx); err != nil {
		cli.logger.Warn().Err(err).Msg("[claims] refresh after password update")
	}
	cli.notifier.Info("Password updated", fmt.Sprintf("Password for %q updated.", room))
	cli.Auth.Proofs().Invalidate(room)
	cli.Auth.Proof(ctx, room)
	return nil
}

// ForgetRoomPassword removes the account-saved password for room.
func (cli *Client) ForgetRoomPassword(ctx context.Context, room string) error {
	res, err := cli.Backend.DeleteRoomPassword(ctx, room)
	if err != nil {
		return err
	}
	if !res.Success {
		return actionError(utils.NewChatError(utils.KindNetwork, "forget password failed"), res)
	}
	cli.Auth.Credentials().Forget(room)
	cli.Auth.Proofs().Invalidate(room)
	return nil
}

// RemoveRoom drops room from the library. It does not leave the room if it
// is the current one.
func (cli *Client) RemoveRoom(ctx context.Context, room string) error {
	return cli.Registry.Remove(ctx, room)
}

// ClaimedChats refreshes and returns the claim list.
func (cli *Client) ClaimedChats(ctx context.Context) ([]models.ClaimInfo, error) {
	if err := cli.refreshClaims(ctx); err != nil {
		return nil, err
	}
	cli.mu.RLock()
	defer cli.mu.RUnlock()
	out := make([]models.ClaimInfo, 0, len(cli.claimed))
	for _, c := range cli.claimed {
		out = append(out, c)
	}
	return out, nil
}
