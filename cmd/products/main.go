package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Gunvolt24/yote/config"
	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/resource"
	"github.com/Gunvolt24/yote/internal/transport/apiclient"
	"github.com/Gunvolt24/yote/pkg/apierr"
	"github.com/Gunvolt24/yote/pkg/lens"
	"github.com/Gunvolt24/yote/pkg/logger"
	"github.com/Gunvolt24/yote/pkg/querystring"
)

const usage = `usage: products <command> [flags]

commands:
  get <id>                             товар по id
  list [-endpoint e] [-page n -per n] [field=value ...]
                                       список с фильтрами; следующая страница грузится заранее
  create [-set path=value ...]         создать товар (значения по умолчанию с /default)
  update <id> -set path=value ...      изменить поля товара (вложенные пути через точку)
  delete <id>                          удалить товар
`

// setFlags — повторяемый флаг -set path=value.
type setFlags []string

func (s *setFlags) String() string     { return strings.Join(*s, ",") }
func (s *setFlags) Set(v string) error { *s = append(*s, v); return nil }

// CLI-клиент API товаров поверх клиентского кэша ресурсов.
func main() {
	_ = godotenv.Load(".env.local")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logg, cleanup, err := logger.NewZapLogger(cfg.Logger.IsProd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = cleanup() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := apiclient.New[domain.Product](apiclient.Config{
		BaseURL:   cfg.Client.BaseURL,
		Resource:  "/api/products",
		Timeout:   cfg.Client.RequestTimeout,
		Principal: cfg.Client.UserID,
	}, nil)

	registry := resource.NewRegistry()
	svc := resource.NewService[domain.Product](resource.StoreFor[domain.Product](registry, "products"), client, logg,
		resource.WithMaxInFlight(cfg.Client.MaxInFlight),
		resource.WithSessionExpired(func() {
			fmt.Fprintln(os.Stderr, "session expired: set YOTE_CLIENT_USER_ID")
			registry.Reset()
		}),
	)

	cmd, args := os.Args[1], os.Args[2:]
	var out any
	switch cmd {
	case "get":
		out, err = runGet(ctx, svc, args)
	case "list":
		out, err = runList(ctx, svc, args)
	case "create":
		out, err = runCreate(ctx, svc, args)
	case "update":
		out, err = runUpdate(ctx, svc, args)
	case "delete":
		out, err = runDelete(ctx, svc, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", cmd, apierr.Message(err))
		logg.Warnf(ctx, "command %s failed: %v", cmd, err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func runGet(ctx context.Context, svc *resource.Service[domain.Product], args []string) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("get requires exactly one id")
	}
	q := resource.ByID(ctx, svc, args[0], false)
	defer q.Close()
	svc.Wait()

	res := q.Result()
	if res.IsError {
		return nil, res.Err
	}
	if res.IsEmpty {
		return nil, apierr.NotFound("Could not find a matching Product")
	}
	return res.Data, nil
}

func runList(ctx context.Context, svc *resource.Service[domain.Product], args []string) (any, error) {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	endpoint := fs.String("endpoint", "", "list endpoint relative to the resource (e.g. logged-in)")
	page := fs.Int("page", 0, "page number (requires -per)")
	per := fs.Int("per", 0, "page size (requires -page)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	qargs := querystring.Args{}
	for _, kv := range fs.Args() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("filter %q must be field=value", kv)
		}
		qargs[k] = v
	}
	if *page > 0 || *per > 0 {
		qargs["page"], qargs["per"] = *page, *per
	}

	q := resource.List(ctx, svc, resource.At(*endpoint), qargs)
	defer q.Close()
	svc.Wait()

	res := q.Result()
	if res.IsError {
		return nil, res.Err
	}
	return map[string]any{
		"items":      res.Data,
		"page":       res.Pagination.Page,
		"per":        res.Pagination.Per,
		"totalPages": res.Pagination.TotalPages,
		"totalCount": res.Pagination.TotalCount,
		"prefetched": q.NextKey(),
	}, nil
}

func runCreate(ctx context.Context, svc *resource.Service[domain.Product], args []string) (any, error) {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	var sets setFlags
	fs.Var(&sets, "set", "field assignment path=value (repeatable); value is parsed as JSON when possible")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	defaults := resource.ByID(ctx, svc, "default", false)
	defer defaults.Close()
	svc.Wait()

	var created *domain.Product
	m := resource.NewMutation[domain.Product](defaults, svc.Create, resource.AsCreate(),
		resource.WithOnResponse(func(p *domain.Product, _ string) { created = p }))
	defer m.Close()

	if err := applySets(m, sets); err != nil {
		return nil, err
	}
	if err := m.HandleSubmit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func runUpdate(ctx context.Context, svc *resource.Service[domain.Product], args []string) (any, error) {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return nil, errors.New("update requires an id")
	}
	id := args[0]

	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	var sets setFlags
	fs.Var(&sets, "set", "field assignment path=value (repeatable); value is parsed as JSON when possible")
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, errors.New("update requires at least one -set")
	}

	q := resource.ByID(ctx, svc, id, false)
	defer q.Close()
	svc.Wait()
	if res := q.Result(); res.IsError {
		return nil, res.Err
	} else if res.IsEmpty {
		return nil, apierr.NotFound("Could not find a matching Product")
	}

	m := resource.NewMutation[domain.Product](q, svc.Update)
	defer m.Close()
	if err := applySets(m, sets); err != nil {
		return nil, err
	}
	if !m.IsChanged() {
		return q.Result().Data, nil
	}
	if err := m.HandleSubmit(ctx); err != nil {
		return nil, err
	}
	return q.Result().Data, nil
}

func runDelete(ctx context.Context, svc *resource.Service[domain.Product], args []string) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("delete requires exactly one id")
	}
	if err := svc.Delete(ctx, args[0]); err != nil {
		return nil, err
	}
	return map[string]string{"deleted": args[0]}, nil
}

// applySets — "-set meta.color=red" → HandleChange("meta.color", "red").
func applySets(m *resource.Mutation[domain.Product], sets []string) error {
	for _, s := range sets {
		path, raw, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("-set %q must be path=value", s)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		if err := m.HandleChange(path, value); err != nil {
			if errors.Is(err, lens.ErrEmptyPath) {
				return fmt.Errorf("-set %q: empty path", s)
			}
			return fmt.Errorf("-set %q: %w", s, err)
		}
	}
	return nil
}
