// Package cmd implements the myfs command-line interface: a cobra command
// tree gated by a SmartOTP challenge, operating on a single MyFS volume
// per invocation.
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/deploymenttheory/myfs/internal/config"
	"github.com/deploymenttheory/myfs/internal/myfserr"
	"github.com/deploymenttheory/myfs/internal/otp"
	"github.com/deploymenttheory/myfs/internal/volume"
)

var (
	volumePath   string
	metadataPath string
	verbose      bool

	cfg *config.Config

	currentVolume *volume.Volume
	accessPass    string
)

var rootCmd = &cobra.Command{
	Use:   "myfs",
	Short: "Encrypted single-file volume toolkit",
	Long: `myfs opens, lists, and manipulates files stored inside a MyFS
encrypted volume -- a single binary container bound to the host that
created it, with per-file optional passwords layered on top of a
volume-level access password.`,
	Version:           "0.1.0-dev",
	PersistentPreRunE: persistentPreRun,
}

// Execute runs the root command, exiting the process non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	rootCmd.PersistentFlags().StringVar(&volumePath, "volume", cfg.VolumePath, "path to the MyFS volume file")
	rootCmd.PersistentFlags().StringVar(&metadataPath, "metadata", cfg.MetadataPath, "path to the volume's sidecar metadata file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(openCmd, listCmd, addCmd, exportCmd, deleteCmd, passwdCmd, accessPasswdCmd)
}

// persistentPreRun gates every subcommand behind a 3-attempt SmartOTP
// challenge (§4.4, §4.5) and then, for every subcommand except "open",
// opens the volume, verifying the volume-access password entered against
// the sidecar.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := runOTPGate(cfg.OTPAttempts); err != nil {
		return err
	}

	if cmd == openCmd {
		// "open" initializes/validates the volume itself with the password
		// it prompts for, so the access-password check below is skipped.
		return nil
	}

	password, err := promptPassword("Volume access password: ")
	if err != nil {
		return err
	}

	v, err := volume.Open(volumePath, metadataPath, password)
	if err != nil {
		return err
	}
	match, err := v.IsPasswordMatch(password)
	if err != nil {
		return err
	}
	if !match {
		return myfserr.New(myfserr.KindAuthError, "volume access password is incorrect")
	}

	currentVolume = v
	accessPass = password
	return nil
}

func runOTPGate(attempts int) error {
	challenge, err := otp.GenerateChallenge()
	if err != nil {
		return err
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		fmt.Printf("SmartOTP challenge: %s\nEnter OTP: ", challenge)
		response, err := promptPassword("")
		if err != nil {
			return err
		}
		ok, err := otp.VerifyOTP(response, challenge, time.Duration(cfg.OTPWindow)*time.Second)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		fmt.Printf("Incorrect OTP (attempt %d/%d)\n", attempt, attempts)
	}

	fmt.Fprintln(os.Stderr, "Too many failed OTP attempts")
	os.Exit(1)
	return nil
}

func promptPassword(prompt string) (string, error) {
	if prompt != "" {
		fmt.Print(prompt)
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", myfserr.Wrap(myfserr.KindIOError, "reading password", err)
		}
		return string(bytes), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", myfserr.Wrap(myfserr.KindIOError, "reading password", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
