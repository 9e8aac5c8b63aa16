// Command checktoken verifies a Yandex Disk OAuth token before it is put
// into the bot's environment. It prints disk usage and, with -ops, exercises
// folder creation, publication and removal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/maauso/videobackup-bot/internal/disk"
)

const testFolder = "telegram-bot-test"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("checktoken", flag.ContinueOnError)
	baseURL := fs.String("base-url", disk.DefaultBaseURL, "Yandex Disk API root")
	ops := fs.Bool("ops", false, "also test folder create, publish and remove")
	timeout := fs.Duration("timeout", time.Minute, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	token := fs.Arg(0)
	if token == "" {
		token = os.Getenv("YANDEX_OAUTH_TOKEN")
	}
	if token == "" {
		fmt.Fprintln(stdout, "Enter Yandex OAuth token:")
		line, _ := bufio.NewReader(stdin).ReadString('\n')
		token = strings.TrimSpace(line)
	}

	// The client logs every call; keep the report readable.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := disk.NewClient(token, disk.WithBaseURL(*baseURL), disk.WithLogger(quiet))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Fprintf(stdout, "🔍 Checking Yandex OAuth token %s\n\n", mask(token))
	if err := checkToken(ctx, client, stdout); err != nil {
		return err
	}

	if *ops {
		if err := checkOperations(ctx, client, stdout); err != nil {
			return err
		}
	}

	fmt.Fprintln(stdout, "\n🎉 Done! The token can be used as YANDEX_OAUTH_TOKEN.")
	return nil
}

func checkToken(ctx context.Context, client disk.Client, out io.Writer) error {
	stats, err := client.Stats(ctx)
	if err != nil {
		var apiErr *disk.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			fmt.Fprintln(out, "❌ Authorization failed: the token is invalid or expired.")
		}
		return fmt.Errorf("check token: %w", err)
	}

	fmt.Fprintln(out, "✅ Token is valid!")
	fmt.Fprintln(out, "\n📊 Disk information:")
	fmt.Fprintf(out, "   💾 Total space: %.2f GB\n", stats.TotalGB)
	fmt.Fprintf(out, "   📈 Used: %.2f GB (%.1f%%)\n", stats.UsedGB, stats.UsedPercent)
	fmt.Fprintf(out, "   📉 Free: %.2f GB\n", stats.FreeGB())
	return nil
}

func checkOperations(ctx context.Context, client disk.Client, out io.Writer) error {
	fmt.Fprintln(out, "\n🧪 Testing folder operations...")

	fmt.Fprintf(out, "   📁 Creating folder %q...\n", testFolder)
	if _, err := client.EnsureFolder(ctx, testFolder); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}

	fmt.Fprintln(out, "   🌐 Publishing folder...")
	link, err := client.PublishFolder(ctx, testFolder)
	if err != nil {
		return fmt.Errorf("publish folder: %w", err)
	}
	fmt.Fprintf(out, "   🔗 Public link: %s\n", link)

	fmt.Fprintln(out, "   🗑️  Removing test folder...")
	if err := client.Remove(ctx, testFolder); err != nil {
		fmt.Fprintf(out, "   ⚠️  Could not remove the test folder, remove %q manually: %v\n", testFolder, err)
		return nil
	}

	fmt.Fprintln(out, "✅ All operations succeeded!")
	return nil
}

func mask(token string) string {
	if len(token) <= 30 {
		return "***"
	}
	return token[:20] + "..." + token[len(token)-10:]
}
