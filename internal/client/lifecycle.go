package client

// Shutdown stops polling, forgets session-only passwords and cached proofs
// and closes the state store.
func (cli *Client) Shutdown() error {
	cli.Coord.Stop()
	cli.Auth.Credentials().ClearSession()
	cli.Auth.Proofs().Clear()
	if cli.Store != nil {
		if err := cli.Store.Close(); err != nil {
			cli.logger.Error().Err(err).Msg("[shutdown] close store")
			return err
		}
	}
	cli.logger.Info().Msg("[shutdown] done")
	return nil
}
