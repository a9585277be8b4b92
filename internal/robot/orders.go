package robot

import (
	"context"

	"ibrobot/internal/execution"
	"ibrobot/internal/notification"
	"ibrobot/internal/portfolio"
	"ibrobot/internal/strategy"
)

// act turns an actionable signal into an order and commits a fill back into
// the symbol's facts. ok is false when no order was built.
func (r *Robot) act(ctx context.Context, sig strategy.Signal) (execution.OrderResult, bool) {
	log := r.log.With("symbol", sig.Symbol, "action", string(sig.Action))

	slot, found := r.container.Get(sig.Symbol)
	if !found {
		return execution.OrderResult{}, false
	}
	facts := slot.Facts

	var held int64
	for _, p := range r.portfolio.GetPositions() {
		if p.Symbol == sig.Symbol {
			held = p.Qty
		}
	}

	spec := execution.OrderSpec{Account: r.cfg.Account, OutsideRTH: r.cfg.Session.Extended}
	order, err := execution.BuildOrder(spec, sig, facts, held, r.now())
	if err != nil {
		log.Warn("order not built", "error", err)
		return execution.OrderResult{}, false
	}

	if sig.Action == strategy.ActionBuy {
		if ok, reason := r.risk.CanOpen(order.Symbol, order.Qty, order.Price); !ok {
			res := execution.OrderResult{Order: order, Status: execution.StatusRejected, Message: reason}
			r.countOrder(res)
			log.Warn("order blocked by risk", "reason", reason)
			r.notify(ctx, notification.OrderAlert(res))
			return res, true
		}
	}

	res, err := r.deps.Executor.Submit(ctx, order)
	if err != nil {
		res = execution.OrderResult{Order: order, Status: execution.StatusRejected, Message: err.Error()}
	}
	r.countOrder(res)
	if !res.Filled() {
		log.Warn("order not filled", "status", res.Status, "message", res.Message)
		r.notify(ctx, notification.OrderAlert(res))
		return res, true
	}

	fill := *res.Fill
	next, err := portfolio.ApplyFill(facts, fill)
	if err != nil {
		log.Error("fill not committed", "order_id", order.OrderID, "error", err)
		return res, true
	}
	if err := r.container.UpdateFacts(sig.Symbol, next); err != nil {
		log.Error("fill not committed", "order_id", order.OrderID, "error", err)
		return res, true
	}
	r.portfolio.Apply(fill)

	realized := r.pnl.RecordTrade(portfolio.TradeFromFill(fill))
	if fill.Side == string(strategy.ActionSell) {
		r.risk.RecordPnL(realized)
	}
	if t := r.deps.Trades; t != nil {
		if err := t.Record(execution.TradeEntry{Result: res, Realized: realized, Reason: sig.Reason}); err != nil {
			log.Error("journal trade failed", "order_id", order.OrderID, "error", err)
		}
	}
	if m := r.deps.Metrics; m != nil {
		m.OpenPositions.Set(float64(len(r.portfolio.GetPositions())))
		m.RealizedPnL.Set(r.pnl.GetRealizedPnL())
	}

	log.Info("order filled",
		"order_id", order.OrderID,
		"qty", fill.Qty,
		"price", fill.Price,
		"realized", realized,
	)
	r.notify(ctx, notification.OrderAlert(res))
	return res, true
}

func (r *Robot) countOrder(res execution.OrderResult) {
	if m := r.deps.Metrics; m != nil {
		m.OrdersTotal.WithLabelValues(res.Order.Side, res.Status).Inc()
	}
}
