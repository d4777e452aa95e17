package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcodd23/go-db-core/pkg/logx"
)

// WaitForShutdown waits for OS signals (SIGINT, SIGTERM) to gracefully shut down the application.
// It runs the cleanup code provided by the cleanupCallback function within a context with a specified timeout.
// This is where connections, statement caches and pools should be released.
//
// Usage:
//
//	shutdown.WaitForShutdown(context.Background(), 5000, func(timeoutCtx context.Context) {
//	    stmtCache.Close(timeoutCtx)
//	    conn.Close(timeoutCtx)
//	    pool.Close()
//	})
func WaitForShutdown(rootCtx context.Context, timeoutMilli int64, cleanupCallback func(timeoutCtx context.Context)) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	signalCaptured := <-signals
	logx.GetLogger().LogDebug(rootCtx, fmt.Sprintf("Interrupt signal captured: %s", signalCaptured.String()))

	timeoutCtx, cancel := context.WithTimeout(rootCtx, time.Duration(timeoutMilli)*time.Millisecond)

	defer cancel()
	cleanUp(timeoutCtx, cleanupCallback)
}

// cleanUp executes the provided cleanup callback function and logs the result.
// It waits for either the cleanup to complete or the context to be cancelled.
func cleanUp(timeoutCtx context.Context, cleanupCallback func(timeoutCtx context.Context)) {
	logx.GetLogger().LogInfo(timeoutCtx, "Cleaning up all resources ....")

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		if cleanupCallback != nil {
			cleanupCallback(timeoutCtx)
		}
		ch <- "All resources cleaned up"
	}()

	select {
	case <-timeoutCtx.Done():
		logx.GetLogger().LogError(timeoutCtx, "Deadline exceeded while cleaning up resources", timeoutCtx.Err())
	case result := <-ch:
		logx.GetLogger().LogInfo(timeoutCtx, result)
	}
}
