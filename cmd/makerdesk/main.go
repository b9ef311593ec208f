// Command makerdesk inspects and mutates the request lifecycle store from the
// command line. Storage selection follows the MAKERDESK_STORAGE_DRIVER
// environment variable; the default is the embedded sqlite store, so state
// survives between invocations.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"makerdesk/internal/core"
	"makerdesk/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(stderr io.Writer) {
	fmt.Fprintln(stderr, "usage: makerdesk <command> [flags]")
	fmt.Fprintln(stderr, "commands:")
	fmt.Fprintln(stderr, "  create          create a request (-title, -client, -type, -priority, -budget)")
	fmt.Fprintln(stderr, "  status          move a request (-id, -to)")
	fmt.Fprintln(stderr, "  list            list requests by due date (-status, -type, -client, -search)")
	fmt.Fprintln(stderr, "  kpis            print dashboard counts")
	fmt.Fprintln(stderr, "  alerts          print attention buckets")
	fmt.Fprintln(stderr, "  royalties       print trailing 30 day royalty total")
	fmt.Fprintln(stderr, "  activity        print the merged activity feed (-limit)")
	fmt.Fprintln(stderr, "  export-profile  write a designer profile as JSON (-id)")
	fmt.Fprintln(stderr, "  import-profile  read a designer profile JSON from stdin (-id)")
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	command, rest := args[0], args[1:]

	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return 1
	}
	svc := core.NewService(store)
	ctx := context.Background()

	switch command {
	case "create":
		return runCreate(ctx, svc, rest, stdout, stderr)
	case "status":
		return runStatus(ctx, svc, rest, stdout, stderr)
	case "list":
		return runList(ctx, svc, rest, stdout, stderr)
	case "kpis":
		return printJSON(stdout, stderr, svc.KPIs(ctx))
	case "alerts":
		return printJSON(stdout, stderr, svc.Alerts(ctx))
	case "royalties":
		fmt.Fprintf(stdout, "%.2f\n", svc.Royalties(ctx))
		return 0
	case "activity":
		return runActivity(ctx, svc, rest, stdout, stderr)
	case "export-profile":
		return runExportProfile(ctx, svc, rest, stdout, stderr)
	case "import-profile":
		return runImportProfile(ctx, svc, rest, os.Stdin, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		usage(stderr)
		return 2
	}
}

func runCreate(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(stderr)
	title := fs.String("title", "", "request title")
	client := fs.String("client", "", "client name")
	reqType := fs.String("type", "", "request type")
	priority := fs.String("priority", "", "priority (normal|high|rush)")
	budget := fs.Float64("budget", 0, "agreed budget")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *title == "" {
		fmt.Fprintln(stderr, "create: -title is required")
		return 2
	}
	created, err := svc.CreateRequest(ctx, domain.Request{
		Title:      *title,
		ClientName: *client,
		Type:       domain.RequestType(*reqType),
		Priority:   domain.Priority(*priority),
		Budget:     *budget,
	})
	if err != nil {
		fmt.Fprintf(stderr, "create: %v\n", err)
		return 1
	}
	return printJSON(stdout, stderr, created)
}

func runStatus(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.String("id", "", "request id")
	to := fs.String("to", "", "target status")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *id == "" || *to == "" {
		fmt.Fprintln(stderr, "status: -id and -to are required")
		return 2
	}
	updated, err := svc.SetRequestStatus(ctx, *id, domain.RequestStatus(*to))
	if err != nil {
		fmt.Fprintf(stderr, "status: %v\n", err)
		return 1
	}
	return printJSON(stdout, stderr, updated)
}

func runList(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	status := fs.String("status", "", "filter by exact status")
	reqType := fs.String("type", "", "filter by exact type")
	client := fs.String("client", "", "filter by client name substring")
	search := fs.String("search", "", "free text search")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	out := svc.ListRequestsByDueDate(ctx, core.RequestFilter{
		Status: domain.RequestStatus(*status),
		Type:   domain.RequestType(*reqType),
		Client: *client,
		Search: *search,
	})
	return printJSON(stdout, stderr, out)
}

func runActivity(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("activity", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", 20, "maximum entries (0 for all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return printJSON(stdout, stderr, svc.Activity(ctx, *limit))
}

func runExportProfile(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export-profile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.String("id", "designer", "profile id")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw, err := svc.ExportProfile(ctx, *id)
	if err != nil {
		fmt.Fprintf(stderr, "export-profile: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(raw))
	return 0
}

func runImportProfile(ctx context.Context, svc *core.Service, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("import-profile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.String("id", "designer", "profile id")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		fmt.Fprintf(stderr, "import-profile: read stdin: %v\n", err)
		return 1
	}
	saved, err := svc.ImportProfile(ctx, *id, raw)
	if err != nil {
		fmt.Fprintf(stderr, "import-profile: %v\n", err)
		return 1
	}
	return printJSON(stdout, stderr, saved)
}

func printJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "encode output: %v\n", err)
		return 1
	}
	return 0
}
