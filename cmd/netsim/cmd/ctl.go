package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/netfabrik/netsim/sim"
)

var ctlCmd = &cobra.Command{
	Use:       "ctl [status|pause|resume|stats|links]",
	Short:     "Send a command to a running simulation's control plane",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"status", "pause", "resume", "stats", "links"},
	RunE:      runControl,
}

func init() {
	ctlCmd.Flags().String("addr", sim.DefaultControlAddr, "control plane address")
	ctlCmd.Flags().Duration("timeout", 5*time.Second, "dial and response timeout")
}

// runControl speaks the one-shot control protocol: dial, write one JSON
// command object, read the single response, close.
func runControl(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("dial control plane %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	request, err := json.Marshal(map[string]string{"cmd": args[0]})
	if err != nil {
		return err
	}
	if _, err := conn.Write(request); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	// The server sends exactly one response and closes the connection.
	response, err := io.ReadAll(conn)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, response, "", "  "); err != nil {
		fmt.Println(string(response))
		return nil
	}

	var probe struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(response, &probe) == nil && probe.Error != "" {
		color.Red("%s", pretty.String())
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
