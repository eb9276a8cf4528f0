// Command capture walks the verification capture flow from the terminal:
// document image, selfie image, review, submit, then optionally watch the
// status until a reviewer decides.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"trustbadge/internal/capture"
	"trustbadge/internal/platform/config"
	"trustbadge/internal/platform/logger"
	"trustbadge/internal/verification"
)

func main() {
	var (
		server   = flag.String("server", "http://localhost:8080", "verification service base URL")
		token    = flag.String("token", "", "bearer token for the verification API")
		document = flag.String("document", "", "path to the ID document image")
		selfie   = flag.String("selfie", "", "path to the selfie image")
		watch    = flag.Bool("watch", false, "poll the status until the review completes")
		interval = flag.Duration("interval", capture.DefaultPollInterval, "status poll interval")
	)
	flag.Parse()

	if *token == "" || *document == "" || *selfie == "" {
		fmt.Fprintln(os.Stderr, "usage: capture -token TOKEN -document FILE -selfie FILE [-server URL] [-watch]")
		os.Exit(2)
	}

	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	docImg, err := capture.ReadImageFile(*document, config.DefaultMaxImageBytes)
	if err != nil {
		fatal("document image", err)
	}
	selfieImg, err := capture.ReadImageFile(*selfie, config.DefaultMaxImageBytes)
	if err != nil {
		fatal("selfie image", err)
	}

	step, err := capture.Start(config.DefaultMaxImageBytes).Attach(docImg)
	if err != nil {
		fatal("document image", err)
	}
	selfieStep, err := step.Next()
	if err != nil {
		fatal("capture flow", err)
	}
	selfieStep, err = selfieStep.Attach(selfieImg)
	if err != nil {
		fatal("selfie image", err)
	}
	review, err := selfieStep.Next()
	if err != nil {
		fatal("capture flow", err)
	}

	client := capture.NewClient(*server, *token)
	flow := capture.NewFlow(client)

	rec, err := flow.Submit(ctx, review)
	if err != nil {
		fatal("submit", err)
	}
	fmt.Printf("submitted verification %s (status %s)\n", rec.ID, rec.Status)

	if !*watch {
		return
	}

	poller := capture.NewPoller(client.VerificationStatus, *interval, func(rec *capture.Record) {
		fmt.Printf("%s status: %s\n", time.Now().Format(time.RFC3339), rec.Status)
		if verification.Status(rec.Status).IsTerminal() {
			if rec.RejectionReason != "" {
				fmt.Printf("rejection reason: %s\n", rec.RejectionReason)
			}
			stop()
		}
	}, log)

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fatal("status poll", err)
	}
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "capture: %s: %v\n", what, err)
	os.Exit(1)
}
