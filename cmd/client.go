package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/madlink306/antsdr-streamd/internal/command"
)

// callDaemon sends one command to the daemon and prints nothing; the
// caller decides how to render the result.
func callDaemon(method string, params interface{}) interface{} {
	client := command.NewUDSClient(socketPath, 10*time.Second)
	resp, err := client.Call(context.Background(), method, params)
	if err != nil {
		exitWithError("failed to reach daemon (is it running?)", err)
	}
	if resp.Error != nil {
		exitWithError(fmt.Sprintf("%s failed: %s", method, resp.Error.Message), nil)
	}
	return resp.Result
}

// printJSON renders a command result as indented JSON.
func printJSON(result interface{}) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		exitWithError("failed to format result", err)
	}
	fmt.Println(string(out))
}
