// batchpoll submits a batch from a JSON file and follows it to completion.
//
// Usage:
//
//	batchpoll -server http://localhost:8080 -token $TOKEN -kind find -file batch.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"email-lookup-service/client"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "lookup service base URL")
	token := flag.String("token", os.Getenv("LOOKUP_TOKEN"), "API token (defaults to $LOOKUP_TOKEN)")
	kind := flag.String("kind", "find", "job kind: find or verify")
	file := flag.String("file", "", "path to a JSON array of batch items")
	label := flag.String("label", "", "optional source label for the job")
	interval := flag.Duration("interval", 2*time.Second, "poll interval")
	flag.Parse()

	if *file == "" {
		log.Fatal("-file is required")
	}
	if *token == "" {
		log.Fatal("no token: pass -token or set LOOKUP_TOKEN")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read batch: %v", err)
	}
	var items []client.ItemInput
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Fatalf("parse batch: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cli := client.New(*server, *token)
	sum, err := cli.Submit(ctx, *kind, items, *label)
	if err != nil {
		log.Fatalf("submit: %v", err)
	}
	log.Printf("job %s submitted: %d items", sum.ID, sum.TotalItems)

	poller := client.NewPoller(cli).WithInterval(*interval, 30*time.Second)
	poller.OnUpdate = func(s client.JobSummary) {
		log.Printf("job %s: %s %d/%d (ok=%d err=%d)",
			s.ID, s.Status, s.ProcessedCount, s.TotalItems, s.SuccessCount, s.FailCount)
	}

	// Ctrl-C stops the job server-side and ends the poll.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("stopping job %s", sum.ID)
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if _, err := cli.Stop(stopCtx, sum.ID); err != nil {
			log.Printf("stop: %v", err)
		}
		poller.Stop()
	}()

	final, err := poller.Wait(ctx, sum.ID)
	if err != nil {
		log.Fatalf("poll: %v", err)
	}

	detail, err := cli.Job(ctx, final.ID)
	if err != nil {
		log.Fatalf("fetch results: %v", err)
	}
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	if err := out.Encode(detail); err != nil {
		log.Fatalf("write results: %v", err)
	}
	if final.Status != "completed" {
		fmt.Fprintf(os.Stderr, "job ended %s: %s\n", final.Status, final.ErrorMessage)
		os.Exit(1)
	}
}
