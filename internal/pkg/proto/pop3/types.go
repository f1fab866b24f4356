package pop3

// CommandPayload is the POP3_COMMAND event payload (client->server).
type CommandPayload struct {
	Command string
	Args    string
	Raw     string
}

// ResponsePayload is the POP3_RESPONSE event payload (server->client).
type ResponsePayload struct {
	Status string // "+OK" or "-ERR"
	Text   string
	Raw    string
}
