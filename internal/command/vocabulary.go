package command

// Vocabulary maps a command name to the exact number of arguments it takes.
type Vocabulary map[string]int

// Command names.
const (
	Login   = "login"
	Logoff  = "logoff"
	Quit    = "quit"
	Stop    = "stop"
	Close   = "close"
	Start   = "start"
	GetHost = "gethost"
	SetHost = "sethost"
	GetPort = "getport"
	SetPort = "setport"
)

var (
	// Server is what a remote connection may send.
	Server = Vocabulary{
		Login: 1,
	}

	// Operator is what the server console accepts.
	Operator = Vocabulary{
		Quit:    0,
		Stop:    0,
		Close:   0,
		Start:   0,
		GetPort: 0,
		SetPort: 1,
	}

	// Client is what the client console accepts.
	Client = Vocabulary{
		Quit:    0,
		Logoff:  0,
		Login:   0,
		GetHost: 0,
		GetPort: 0,
		SetHost: 1,
		SetPort: 1,
	}
)
