package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"igait-client/internal/domain"
	"igait-client/internal/realtime"
)

// snapshotTimeout bounds how long a one-shot command waits for the first
// loaded snapshot.
const snapshotTimeout = 30 * time.Second

func newJobsCommand(a *app) *cobra.Command {
	var watch, all bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List submitted jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, closeStore, err := a.newSubscriber()
			if err != nil {
				return err
			}
			defer closeStore()

			states := make(chan realtime.JobsState, 8)
			var unsub realtime.Unsubscribe
			if all {
				unsub = sub.SubscribeToAllJobs(func(st realtime.AllJobsState) {
					states <- realtime.JobsState(st)
				})
			} else {
				uid, err := a.requireUser()
				if err != nil {
					return err
				}
				unsub = sub.SubscribeToJobs(uid, func(st realtime.JobsState) {
					states <- st
				})
			}
			defer unsub()

			render := func(st realtime.JobsState) error {
				if st.Status == realtime.StatusError {
					return fmt.Errorf("%s", st.Error)
				}
				printJobsTable(st.Jobs)
				return nil
			}

			if !watch {
				st, err := waitLoaded(states, func(st realtime.JobsState) realtime.Status { return st.Status })
				if err != nil {
					return err
				}
				return render(st)
			}

			return watchLoop(states, func(st realtime.JobsState) error {
				if st.Status == realtime.StatusLoading {
					return nil
				}
				fmt.Println()
				return render(st)
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep watching for changes until interrupted")
	cmd.Flags().BoolVar(&all, "all", false, "list every user's jobs (administrators)")
	return cmd
}

func newJobCommand(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "job <job-id>",
		Short: "Show one job by its composite id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, closeStore, err := a.newSubscriber()
			if err != nil {
				return err
			}
			defer closeStore()

			states := make(chan realtime.SingleJobState, 8)
			unsub := sub.SubscribeToJob(args[0], func(st realtime.SingleJobState) {
				states <- st
			})
			defer unsub()

			render := func(st realtime.SingleJobState) error {
				if st.Status == realtime.StatusError {
					return fmt.Errorf("%s", st.Error)
				}
				printJob(args[0], st.Job)
				return nil
			}

			if !watch {
				st, err := waitLoaded(states, func(st realtime.SingleJobState) realtime.Status { return st.Status })
				if err != nil {
					return err
				}
				return render(st)
			}

			return watchLoop(states, func(st realtime.SingleJobState) error {
				if st.Status == realtime.StatusLoading {
					return nil
				}
				fmt.Println()
				return render(st)
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep watching for changes until interrupted")
	return cmd
}

func newQueuesCommand(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "queues",
		Short: "Show the processing-stage queues (administrators)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, closeStore, err := a.newSubscriber()
			if err != nil {
				return err
			}
			defer closeStore()

			states := make(chan realtime.QueuesState, 8)
			unsub := sub.SubscribeToQueues(func(st realtime.QueuesState) { states <- st })
			defer unsub()

			render := func(st realtime.QueuesState) error {
				if st.Status == realtime.StatusError {
					return fmt.Errorf("%s", st.Error)
				}
				printQueues(st.Queues)
				return nil
			}

			if !watch {
				st, err := waitLoaded(states, func(st realtime.QueuesState) realtime.Status { return st.Status })
				if err != nil {
					return err
				}
				return render(st)
			}

			return watchLoop(states, func(st realtime.QueuesState) error {
				if st.Status == realtime.StatusLoading {
					return nil
				}
				fmt.Println()
				return render(st)
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep watching for changes until interrupted")
	return cmd
}

func newQueueConfigCommand(a *app) *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "queue-config [stage]",
		Short: "Show or change per-stage queue configuration (administrators)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, closeStore, err := a.newSubscriber()
			if err != nil {
				return err
			}
			defer closeStore()

			if set != "" {
				if len(args) != 1 {
					return fmt.Errorf("--set requires a stage argument")
				}
				value, err := strconv.ParseBool(set)
				if err != nil {
					return fmt.Errorf("--set expects true or false, got %q", set)
				}
				if err := sub.SetQueueRequiresApproval(cmd.Context(), args[0], value); err != nil {
					return err
				}
				color.Green("Updated %s: requires_approval=%v", args[0], value)
				return nil
			}

			states := make(chan realtime.QueueConfigState, 8)
			unsub := sub.SubscribeToQueueConfigs(func(st realtime.QueueConfigState) { states <- st })
			defer unsub()

			st, err := waitLoaded(states, func(st realtime.QueueConfigState) realtime.Status { return st.Status })
			if err != nil {
				return err
			}
			if st.Status == realtime.StatusError {
				return fmt.Errorf("%s", st.Error)
			}

			for _, key := range domain.StageKeys {
				fmt.Printf("%-10s requires_approval=%v\n", key, st.Configs[key].RequiresApproval)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "set requires_approval for the given stage (true|false)")
	return cmd
}

func newApproveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <stage> <item-key>",
		Short: "Approve a held queue item (administrators)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, key := args[0], args[1]

			sub, closeStore, err := a.newSubscriber()
			if err != nil {
				return err
			}
			defer closeStore()

			states := make(chan realtime.QueuesState, 8)
			unsub := sub.SubscribeToQueues(func(st realtime.QueuesState) { states <- st })
			defer unsub()

			st, err := waitLoaded(states, func(st realtime.QueuesState) realtime.Status { return st.Status })
			if err != nil {
				return err
			}
			if st.Status == realtime.StatusError {
				return fmt.Errorf("%s", st.Error)
			}

			bucket := st.Queues.Stage(stage)
			if bucket == nil {
				return fmt.Errorf("unknown stage %q", stage)
			}
			item, ok := bucket[key]
			if !ok {
				return fmt.Errorf("no item %q in %s", key, stage)
			}

			if err := sub.ApproveQueueItem(cmd.Context(), stage, key, item); err != nil {
				return err
			}
			color.Green("Approved %s/%s (job %s)", stage, key, item.JobID)
			return nil
		},
	}
}

func newRerunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rerun <user-id> <job-index> <stage>",
		Short: "Re-process a job from a given stage (administrators)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobIndex, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("job index must be a number, got %q", args[1])
			}
			stage, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("stage must be a number, got %q", args[2])
			}

			res := a.client.RerunJob(cmd.Context(), args[0], jobIndex, stage)
			if res.IsErr() {
				return res.Error()
			}

			reply := res.Value()
			color.Green("%s (objects deleted: %d)", reply.Message, reply.ObjectsDeleted)
			return nil
		},
	}
}

func newFilesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "files <job-id>",
		Short: "List a job's stage artifacts with download URLs (administrators)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.client.JobFiles(cmd.Context(), args[0])
			if res.IsErr() {
				return res.Error()
			}

			for stage, files := range res.Value().Stages {
				fmt.Printf("%s:\n", stage)
				for _, file := range files {
					fmt.Printf("  %-30s %s\n", file.Name, file.URL)
				}
			}
			return nil
		},
	}
}

// waitLoaded drains states until the first non-loading one or the timeout.
func waitLoaded[T any](states chan T, statusOf func(T) realtime.Status) (T, error) {
	deadline := time.After(snapshotTimeout)
	for {
		select {
		case st := <-states:
			if statusOf(st) == realtime.StatusLoading {
				continue
			}
			return st, nil
		case <-deadline:
			var zero T
			return zero, fmt.Errorf("timed out waiting for data")
		}
	}
}

// watchLoop renders every state until the user interrupts.
func watchLoop[T any](states chan T, render func(T) error) error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	for {
		select {
		case st := <-states:
			if err := render(st); err != nil {
				return err
			}
		case <-interrupt:
			fmt.Println()
			return nil
		}
	}
}

func printJobsTable(jobs []domain.JobWithID) {
	if len(jobs) == 0 {
		fmt.Println("No jobs.")
		return
	}

	bold := color.New(color.Bold)
	bold.Printf("%-28s %-12s %-20s %s\n", "ID", "STATUS", "SUBMITTED", "EMAIL")
	for _, job := range jobs {
		fmt.Printf("%-28s %-12s %-20s %s\n",
			job.ID,
			job.Status.Code,
			formatTimestamp(job.Timestamp),
			job.Email)
	}
}

func printJob(id string, job domain.Job) {
	bold := color.New(color.Bold)
	bold.Printf("Job %s\n", id)
	fmt.Printf("  Status:    %s (%s)\n", job.Status.Code, job.Status.Value)
	fmt.Printf("  Submitted: %s\n", formatTimestamp(job.Timestamp))
	fmt.Printf("  Email:     %s\n", job.Email)
	fmt.Printf("  Age:       %d\n", job.Age)
	fmt.Printf("  Sex:       %s\n", job.Sex)
	fmt.Printf("  Height:    %s\n", job.Height)
	fmt.Printf("  Weight:    %d\n", job.Weight)
	if job.RequiresApproval {
		fmt.Printf("  Approved:  %v\n", job.Approved)
	}
}

func printQueues(queues domain.QueuesData) {
	for _, key := range domain.StageKeys {
		bucket := queues.Stage(key)
		fmt.Printf("%s (%d)\n", key, len(bucket))
		for itemKey, item := range bucket {
			claimed := "waiting"
			if item.ClaimedBy != nil {
				claimed = "claimed by " + *item.ClaimedBy
			}
			fmt.Printf("  %-24s job=%-20s %s\n", itemKey, item.JobID, claimed)
		}
	}

	fmt.Printf("finalize (%d)\n", len(queues.Finalize))
	for itemKey, item := range queues.Finalize {
		outcome := "ok"
		if !item.Success {
			outcome = "failed"
			if item.FailedAtStage != nil {
				outcome = fmt.Sprintf("failed at stage %d", *item.FailedAtStage)
			}
		}
		fmt.Printf("  %-24s job=%-20s %s\n", itemKey, item.JobID, outcome)
	}
}

func formatTimestamp(ts int64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(ts, 0).Local().Format("2006-01-02 15:04")
}
