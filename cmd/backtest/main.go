package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"sync"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/exchange"
	"main/internal/fill"
	"main/internal/journal"
	"main/internal/og"
	"main/internal/ops"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/series"
	"main/internal/simmod"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	dataPath := flag.String("data", "", "Path to tick series CSV")
	ordersPath := flag.String("orders", "", "Path to scripted order JSON (optional)")
	sessionEnd := flag.Int64("session-end", 0, "Advance time to this ns timestamp after the data ends (0=last tick)")
	cancelResidual := flag.Bool("cancel-residual", true, "Cancel all working orders at session end")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=off)")
	flag.Parse()

	if *configPath == "" || *dataPath == "" {
		log.Fatalf("usage: backtest -config <file> -data <file> [-orders <file>]")
	}

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "backtest",
			ServerAddress:   *pyroscopeAddr,
			Logger:          emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	if err := run(*configPath, *dataPath, *ordersPath, *sessionEnd, *cancelResidual); err != nil {
		log.Fatalf("backtest failed: %v", err)
	}
}

func run(configPath, dataPath, ordersPath string, sessionEnd int64, cancelResidual bool) error {
	loaded, err := ops.Load(configPath)
	if err != nil {
		return err
	}

	fillModel, err := fill.NewModel(loaded.Fill)
	if err != nil {
		return err
	}
	engine := exchange.NewEngine(loaded.Registry, fillModel, loaded.Latency, loaded.Fee, loaded.Account)
	for _, m := range loaded.Modules {
		engine.RegisterModule(m)
	}
	client := og.NewClient(og.Config{Session: "BACKTEST"}, engine)
	riskEngine := risk.NewEngine(loaded.Risk)

	var jnl *journal.Journal
	if loaded.Journal.Enabled {
		jnl, err = journal.Open(loaded.Journal.DSN, loaded.Journal.RunID)
		if err != nil {
			return err
		}
		defer func() {
			_ = jnl.Close()
		}()
	}

	var script []ops.TimedOrder
	if ordersPath != "" {
		script, err = ops.LoadOrders(ordersPath, loaded.Registry)
		if err != nil {
			return err
		}
	}

	// Lifecycle events flow through a bounded queue to the observers so the
	// journal's I/O stays off the matching path.
	queue := bus.NewQueue(4096)
	counts := make(map[schema.ExecEventType]int)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(context.Background(), func(ev schema.ExecEvent) {
			counts[ev.Type]++
			if jnl != nil {
				if err := jnl.RecordEvent(ev); err != nil {
					logs.Errorf("journal write failed: %v", err)
				}
			}
		})
	}()
	client.SetEventSink(func(ev schema.ExecEvent) {
		if err := queue.TryPublish(ev); err != nil {
			logs.Errorf("event dropped: %v", err)
		}
	})

	f, err := os.Open(dataPath)
	if err != nil {
		return err
	}
	defer f.Close()
	rd, err := series.NewReader(f, loaded.Registry)
	if err != nil {
		return err
	}

	ticks := 0
	lastTs := int64(0)
	next := 0
	for {
		md, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		next = sendDue(script, next, md.TsEvent, client, riskEngine, engine)
		if err := engine.OnMarketData(md); err != nil {
			return err
		}
		ticks++
		lastTs = md.TsEvent
	}

	end := sessionEnd
	if end < lastTs {
		end = lastTs
	}
	// The data may end before the script does; flush what is still due
	// inside the session window before closing it out.
	next = sendDue(script, next, end, client, riskEngine, engine)
	if next < len(script) {
		logs.Errorf("%d scripted orders fall after session end %d and were not sent", len(script)-next, end)
	}
	if err := engine.AdvanceTime(end); err != nil {
		return err
	}
	if cancelResidual {
		if err := client.CancelAllOrders(0, end); err != nil {
			return err
		}
		if err := engine.AdvanceTime(loaded.Latency.EffectiveTime(end, schema.CommandCancel)); err != nil {
			return err
		}
	}

	queue.Close()
	wg.Wait()

	report(engine, riskEngine, counts, ticks, jnl)
	return nil
}

// sendDue submits scripted orders whose send time has been reached, grouped
// by equal send time so linked orders activate as one unit. Returns the new
// script cursor.
func sendDue(script []ops.TimedOrder, next int, ts int64, client *og.Client, riskEngine *risk.Engine, engine *exchange.Engine) int {
	for next < len(script) && script[next].SendTs <= ts {
		sendTs := script[next].SendTs
		var batch []schema.NewOrder
		for next < len(script) && script[next].SendTs == sendTs {
			spec := script[next].Spec
			next++
			ins, ok := engine.Registry().Instrument(spec.InstrumentID)
			if !ok {
				continue
			}
			view := risk.StateView{}
			if pos, ok := engine.Position(spec.InstrumentID); ok {
				view.Position = pos.Qty
			}
			if px, ok := engine.LastTrade(spec.InstrumentID); ok {
				view.ReferencePrice = px
			}
			if decision := riskEngine.Evaluate(spec, ins, view); decision.Action == risk.ActionDeny {
				logs.Infof("order %d denied by risk: %s", spec.OrderID, decision.Reason)
				continue
			}
			batch = append(batch, spec)
		}
		if len(batch) > 0 {
			if err := client.SubmitOrderList(batch, sendTs); err != nil {
				logs.Errorf("submit failed: %v", err)
			}
		}
	}
	return next
}

func report(engine *exchange.Engine, riskEngine *risk.Engine, counts map[schema.ExecEventType]int, ticks int, jnl *journal.Journal) {
	logs.Infof("run complete: ticks=%d", ticks)
	for _, t := range []schema.ExecEventType{
		schema.ExecSubmitted, schema.ExecAccepted, schema.ExecRejected,
		schema.ExecFilled, schema.ExecCanceled, schema.ExecCancelRejected,
		schema.ExecExpired,
	} {
		if n := counts[t]; n > 0 {
			logs.Infof("events: %s=%d", t, n)
		}
	}
	if n := riskEngine.Denied(); n > 0 {
		logs.Infof("risk denials: %d", n)
	}

	ledger := engine.Ledger()
	for _, ccy := range ledger.Currencies() {
		logs.Infof("account %s: balance=%s realized=%s commissions=%s", ccy, ledger.Balance(ccy), ledger.Realized(ccy), ledger.Commissions(ccy))
		if jnl != nil {
			if err := jnl.RecordEquity(engine.Now(), ccy, ledger.Balance(ccy), ledger.Realized(ccy)); err != nil {
				logs.Errorf("journal equity write failed: %v", err)
			}
		}
	}

	diag := simmod.DefaultLogger()
	engine.LogDiagnostics(diag)
	orders, positions := engine.CheckResiduals(diag)
	if orders == 0 && positions == 0 {
		logs.Info("no residual state")
	}
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
