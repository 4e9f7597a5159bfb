package client

import "roomsync/internal/models"

func (cli *Client) Username() string {
	cli.mu.RLock()
	defer cli.mu.RUnlock()
	return cli.username
}

func (cli *Client) CurrentRoom() string {
	return cli.Coord.CurrentRoom()
}

func (cli *Client) Rooms() []string {
	return cli.Registry.List()
}

// Claim returns who owns room, if anyone.
func (cli *Client) Claim(room string) (models.ClaimInfo, bool) {
	cli.mu.RLock()
	defer cli.mu.RUnlock()
	c, ok := cli.claimed[room]
	return c, ok && c.ClaimedBy != ""
}

// OwnsRoom reports whether the logged-in user holds the claim on room.
func (cli *Client) OwnsRoom(room string) bool {
	c, ok := cli.Claim(room)
	return ok && c.ClaimedBy == cli.Username()
}
