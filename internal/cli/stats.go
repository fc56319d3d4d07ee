package cli

import (
	"fmt"

	"shodh/internal/metrics"
)

// printSessionStats displays in-memory statistics for the current session.
// The collector only lives for one process, so this is reachable from the
// interactive chat session rather than a standalone command.
func printSessionStats() {
	snap := collector.Snapshot()

	fmt.Printf("Session statistics\n")
	fmt.Printf("═══════════════════════════════════════\n")
	fmt.Printf("Uptime: %.1f seconds\n", snap.UptimeSeconds)

	if snap.Request != nil {
		fmt.Printf("\nRequests:\n")
		printOpStats(snap.Request)
	}

	if snap.ChatStream != nil {
		fmt.Printf("\nChat Streams:\n")
		printOpStats(snap.ChatStream)
		printByteStats(snap.ChatStream)
	}

	if snap.JobPoll != nil {
		fmt.Printf("\nJob Polls:\n")
		printOpStats(snap.JobPoll)
	}

	if snap.StatusResolve != nil {
		fmt.Printf("\nStatus Resolves:\n")
		printOpStats(snap.StatusResolve)
	}

	if snap.PushEvents != nil {
		fmt.Printf("\nPush Events:\n")
		printOpStats(snap.PushEvents)
		printByteStats(snap.PushEvents)
	}

	if snap.Reconnects > 0 {
		fmt.Printf("\nPush reconnects: %d\n", snap.Reconnects)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(op *metrics.OperationSnapshot) {
	fmt.Printf("  Calls: %d, Total: %dms\n", op.Count, op.TotalTimeMs)
	fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}

// printByteStats displays payload statistics if available.
func printByteStats(op *metrics.OperationSnapshot) {
	if op.TotalBytes == nil {
		return
	}
	fmt.Printf("  Bytes: %d total", *op.TotalBytes)
	if op.AvgBytes != nil {
		fmt.Printf(", avg %.0f", *op.AvgBytes)
	}
	fmt.Println()
}
