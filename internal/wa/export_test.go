package wa

import "go.mau.fi/whatsmeow"

// Whatsmeow exposes the current underlying client to external tests.
func (a *Adapter) Whatsmeow() *whatsmeow.Client {
	cli, _ := a.cli()
	return cli
}
