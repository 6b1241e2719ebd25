// midisock-send delivers a single note name to a running midisockd
// over its unix socket and reports the outcome on stdout and via the
// exit status:
//
//	0  note sent (prints "SENT")
//	1  no note name supplied
//	2  could not connect to the daemon
//	3  connected but the request write failed
//	4  request sent but no reply arrived
//	5  daemon rejected the request (ERR: line printed verbatim)
//
// The socket is expected in the working directory; MIDISOCK_SOCKET
// overrides the path.
package main

import (
	"fmt"
	"os"

	"github.com/runger/midisock/internal/config"
	"github.com/runger/midisock/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println(`ERR: usage: midisock-send "C#4"`)
		os.Exit(ipc.OutcomeNoArgument.ExitCode())
	}

	socket := ipc.SocketPathFromEnv(config.PathsIn(".").SocketFile())
	outcome, msg := ipc.NewClient(socket).SendNote(os.Args[1])
	fmt.Println(msg)
	os.Exit(outcome.ExitCode())
}
