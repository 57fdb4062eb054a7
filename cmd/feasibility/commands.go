package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	hjson "github.com/hjson/hjson-go/v4"
	"github.com/spf13/cobra"

	"github.com/joelkehle/feasibility-study/internal/merge"
	"github.com/joelkehle/feasibility-study/internal/narrative"
	"github.com/joelkehle/feasibility-study/internal/payload"
	"github.com/joelkehle/feasibility-study/internal/render"
	"github.com/joelkehle/feasibility-study/internal/session"
	"github.com/joelkehle/feasibility-study/internal/store"
)

// inputOptions selects where answers come from: a stored session, answer
// files, form HTML files, or a mix. Files are layered in flag order over the
// stored session, later ones winning.
type inputOptions struct {
	SessionID string
	Answers   []string
	Forms     []string
	Language  string
	Output    string
}

func (o *inputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.SessionID, "session", "", "load this session from the configured store")
	cmd.Flags().StringArrayVar(&o.Answers, "answers", nil, "answers file (JSON or Hjson); repeatable")
	cmd.Flags().StringArrayVar(&o.Forms, "form", nil, "saved questionnaire HTML; repeatable")
	cmd.Flags().StringVar(&o.Language, "lang", "", "report language (defaults to the session's)")
	cmd.Flags().StringVarP(&o.Output, "output", "o", "", "write to this file instead of stdout")
}

// env opens the store and the session service the command runs against.
// Without --session an in-memory store holds a throwaway session.
type env struct {
	store *store.Safe
	svc   *session.Service
	id    string
}

func openEnv(ctx context.Context, o inputOptions, gen *narrative.Generator) (*env, error) {
	var (
		st  *store.Safe
		err error
	)
	id := strings.TrimSpace(o.SessionID)
	if id != "" {
		if st, err = store.Open(ctx, cfg, log); err != nil {
			return nil, err
		}
	} else {
		st = store.NewSafe(store.NewMemoryStore(), log)
		id = session.NewID()
	}
	svc := session.NewService(st, gen, log, session.Options{
		Debounce: cfg.Autosave.Debounce,
		Throttle: cfg.Autosave.Throttle,
	})
	e := &env{store: st, svc: svc, id: id}

	var extra []merge.Source
	for _, path := range o.Answers {
		m, err := readAnswers(path)
		if err != nil {
			e.close(ctx)
			return nil, err
		}
		extra = append(extra, merge.MapSource{Label: path, Data: m})
	}
	for _, path := range o.Forms {
		blob, err := os.ReadFile(path)
		if err != nil {
			e.close(ctx)
			return nil, fmt.Errorf("read form %s: %w", path, err)
		}
		extra = append(extra,
			merge.HTMLFormSource{Label: path + "#commercial-sector", HTML: string(blob), IDs: merge.CommercialSectorIDs},
			merge.HTMLFormSource{Label: path, HTML: string(blob)},
		)
	}
	if len(extra) > 0 {
		if _, err := svc.Save(ctx, id, nil, extra...); err != nil {
			e.close(ctx)
			return nil, err
		}
	}
	if o.Language != "" {
		lang := o.Language
		if _, err := svc.SetPreferences(ctx, id, session.Preferences{Language: &lang}); err != nil {
			e.close(ctx)
			return nil, err
		}
	}
	return e, nil
}

func (e *env) close(ctx context.Context) {
	if err := e.svc.Close(ctx); err != nil {
		log.Warn("session close failed", "err", err)
	}
	if err := e.store.Close(); err != nil {
		log.Warn("store close failed", "err", err)
	}
}

func readAnswers(path string) (map[string]any, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers %s: %w", path, err)
	}
	var m map[string]any
	if err := json.Unmarshal(blob, &m); err == nil {
		return m, nil
	}
	if err := hjson.Unmarshal(blob, &m); err != nil {
		return nil, fmt.Errorf("decode answers %s: %w", path, err)
	}
	return m, nil
}

func writeOutput(path string, blob []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(blob)
		return err
	}
	return os.WriteFile(path, blob, 0o644)
}

func writeJSONOutput(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(path, append(b, '\n'))
}

func newSectionsCmd() *cobra.Command {
	var o inputOptions
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Canonicalize answers and print the sections with their completeness.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, o, nil)
			if err != nil {
				return err
			}
			defer e.close(ctx)
			snap, err := e.svc.Load(ctx, e.id)
			if err != nil {
				return err
			}
			gate, err := e.svc.Completeness(ctx, e.id)
			if err != nil {
				return err
			}
			return writeJSONOutput(o.Output, map[string]any{
				"answers":  snap.Answers,
				"sections": snap.Sections,
				"gate":     gate,
			})
		},
	}
	o.bind(cmd)
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var o inputOptions
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the financial projection and print the analysis with its statements.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, o, nil)
			if err != nil {
				return err
			}
			defer e.close(ctx)
			fin, err := e.svc.Analyze(ctx, e.id, o.Language)
			if err != nil {
				return err
			}
			return writeJSONOutput(o.Output, fin)
		},
	}
	o.bind(cmd)
	return cmd
}

func newPayloadCmd() *cobra.Command {
	var (
		o    inputOptions
		full bool
	)
	cmd := &cobra.Command{
		Use:   "payload",
		Short: "Print the narrative request payload and plain context lines.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, o, nil)
			if err != nil {
				return err
			}
			defer e.close(ctx)
			snap, err := e.svc.Load(ctx, e.id)
			if err != nil {
				return err
			}
			p, lines := session.BuildPayload(snap, session.ReportOptions{Language: o.Language}, time.Now())
			var body any = p
			if !full {
				if body, err = payload.FitToLimit(p, cfg.Narrative.PayloadBudget); err != nil {
					return err
				}
			}
			return writeJSONOutput(o.Output, map[string]any{"payload": body, "context": lines})
		},
	}
	o.bind(cmd)
	cmd.Flags().BoolVar(&full, "full", false, "skip fitting the payload to the size budget")
	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		o      inputOptions
		format string
		author payload.Author
		notes  []string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a report with the configured narrative provider.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			caller, err := narrative.NewCaller(ctx, cfg, o.Language)
			if err != nil {
				return err
			}
			var gen *narrative.Generator
			if caller != nil {
				gen = narrative.NewGenerator(caller, narrative.OptionsFrom(cfg), log)
			}
			e, err := openEnv(ctx, o, gen)
			if err != nil {
				return err
			}
			defer e.close(ctx)

			res, err := e.svc.GenerateReport(ctx, e.id, session.ReportOptions{
				Language: o.Language,
				Author:   author,
				Context:  notes,
			})
			if err != nil {
				return err
			}
			return emitReport(ctx, o.Output, format, res.Report, o.Language, res.GeneratedAt, res)
		},
	}
	o.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "json", "json, markdown or pdf")
	cmd.Flags().StringVar(&author.FullName, "author", "", "author name for the cover page")
	cmd.Flags().StringVar(&author.Email, "email", "", "author email for the cover page")
	cmd.Flags().StringArrayVar(&notes, "context", nil, "extra context line for the model; repeatable")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		input, output, format, lang string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a saved report JSON as Markdown or PDF.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("missing required --input")
			}
			blob, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			var rep narrative.Report
			if err := json.Unmarshal(blob, &rep); err != nil {
				return fmt.Errorf("decode report JSON: %w", err)
			}
			return emitReport(cmd.Context(), output, format, &rep, lang, time.Now(), &rep)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "saved report JSON")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "markdown", "json, markdown or pdf")
	cmd.Flags().StringVar(&lang, "lang", "", "report language (defaults to the report's)")
	return cmd
}

// emitReport writes rep in the requested format; asJSON is what the json
// format prints.
func emitReport(ctx context.Context, output, format string, rep *narrative.Report, lang string, at time.Time, asJSON any) error {
	meta := render.BuildMeta(rep, lang, at)
	switch strings.ToLower(format) {
	case "", "json":
		return writeJSONOutput(output, asJSON)
	case "markdown", "md":
		return writeOutput(output, []byte(render.Markdown(rep, meta)))
	case "pdf":
		if output == "" {
			output = render.FileName(meta.ProjectName, at)
		}
		pdf, err := render.NewChromiumPDFRenderer(cfg.Render.ChromePath, cfg.Render.StylePath, log).Render(ctx, rep, meta)
		if err != nil {
			return err
		}
		if err := writeOutput(output, pdf); err != nil {
			return err
		}
		log.Info("report written", "path", output)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
