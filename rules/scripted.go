package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/daveytran/roundscheduler-sub001/schedule"
)

const (
	defaultScriptPriority  = 5
	defaultScriptCostLimit = 1_000_000
	defaultScriptTimeout   = 250 * time.Millisecond
	interruptEvery         = 100
)

// scriptEnv is shared by every scripted rule. cel.Env is safe for concurrent
// use once built.
var scriptEnv = func() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("matches", cel.ListType(cel.MapType(cel.StringType, cel.DynType))),
		cel.Variable("teams", cel.ListType(cel.MapType(cel.StringType, cel.DynType))),
		cel.Variable("helpers", cel.MapType(cel.StringType, cel.DynType)),
		cel.Function("spread",
			cel.Overload("spread_list_int", []*cel.Type{cel.ListType(cel.IntType)}, cel.IntType,
				cel.UnaryBinding(spreadOf))),
		cel.Function("mean",
			cel.Overload("mean_list_int", []*cel.Type{cel.ListType(cel.IntType)}, cel.DoubleType,
				cel.UnaryBinding(meanOf))),
	)
	if err != nil {
		panic(fmt.Sprintf("rules: building CEL environment: %v", err))
	}
	return env
}()

// scripted runs a user supplied CEL program against the schedule. The
// program yields a list whose items are descriptions or maps with a
// "description" and an optional "matches" list of match indices.
type scripted struct {
	base
	prg     cel.Program
	timeout time.Duration
	logger  logr.Logger
}

func buildScripted(c Config, logger logr.Logger) (Rule, error) {
	if strings.TrimSpace(c.Body) == "" {
		return nil, fmt.Errorf("%w: empty body", ErrCompile)
	}
	meta := Meta{
		ID:       c.ID,
		Name:     c.Name,
		Priority: defaultScriptPriority,
		Category: CategoryBoth,
		Enabled:  true,
		Params:   c.Params.Clone(),
	}
	if meta.ID == "" {
		meta.ID = "scripted"
	}
	if meta.Name == "" {
		meta.Name = meta.ID
	}
	if c.Enabled != nil {
		meta.Enabled = *c.Enabled
	}
	if c.Priority != 0 {
		if c.Priority < MinPriority || c.Priority > MaxPriority {
			return nil, fmt.Errorf("%w: %d", ErrBadPriority, c.Priority)
		}
		meta.Priority = c.Priority
	}
	if c.Category != "" {
		cat, err := ParseCategory(c.Category)
		if err != nil {
			return nil, err
		}
		meta.Category = cat
	}

	limit, err := meta.Params.Int("cost_limit", defaultScriptCostLimit)
	if err != nil {
		return nil, err
	}
	timeout, err := meta.Params.Duration("timeout", defaultScriptTimeout)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || timeout <= 0 {
		return nil, fmt.Errorf("%w: cost_limit and timeout must be positive", ErrBadParam)
	}

	ast, iss := scriptEnv.Compile(c.Body)
	if iss.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, iss.Err())
	}
	if k := ast.OutputType().Kind(); k != types.ListKind && k != types.DynKind {
		return nil, fmt.Errorf("%w: body must evaluate to a list, got %s", ErrCompile, ast.OutputType())
	}
	prg, err := scriptEnv.Program(ast,
		cel.CostLimit(uint64(limit)),
		cel.InterruptCheckFrequency(interruptEvery),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	return &scripted{
		base:    base{meta: meta},
		prg:     prg,
		timeout: timeout,
		logger:  logger.WithValues("rule", meta.ID),
	}, nil
}

func (r *scripted) Evaluate(ctx context.Context, v *View) (out []schedule.Violation, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("%w: %s: panic: %v", ErrScript, r.meta.Name, p)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	val, _, err := r.prg.ContextEval(ctx, scriptInputs(v))
	r.logger.V(4).Info("evaluated scripted rule", "elapsed", time.Since(start))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: timed out after %s", ErrScript, r.meta.Name, r.timeout)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrScript, r.meta.Name, err)
	}
	out, err = r.decode(val, v.Len())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrScript, r.meta.Name, err)
	}
	return out, nil
}

func (r *scripted) decode(val ref.Val, n int) ([]schedule.Violation, error) {
	list, ok := val.(traits.Lister)
	if !ok {
		return nil, fmt.Errorf("result is %s, not a list", val.Type())
	}
	var out []schedule.Violation
	for it := list.Iterator(); it.HasNext() == types.True; {
		item := it.Next()
		switch x := item.(type) {
		case types.String:
			out = append(out, r.violation(string(x)))
		case traits.Mapper:
			desc, found := x.Find(types.String("description"))
			if !found {
				return nil, errors.New("violation map without description")
			}
			s, ok := desc.(types.String)
			if !ok {
				return nil, fmt.Errorf("description is %s, not a string", desc.Type())
			}
			var idxs []int
			if raw, found := x.Find(types.String("matches")); found {
				l, ok := raw.(traits.Lister)
				if !ok {
					return nil, fmt.Errorf("matches is %s, not a list", raw.Type())
				}
				for mi := l.Iterator(); mi.HasNext() == types.True; {
					i, ok := mi.Next().(types.Int)
					if !ok || int(i) < 0 || int(i) >= n {
						return nil, fmt.Errorf("invalid match index in %q", string(s))
					}
					idxs = append(idxs, int(i))
				}
			}
			out = append(out, r.violation(string(s), idxs...))
		default:
			return nil, fmt.Errorf("result item is %s", item.Type())
		}
	}
	return out, nil
}

// ParseCategory reads "team", "player" or "both".
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "team":
		return CategoryTeam, nil
	case "player":
		return CategoryPlayer, nil
	case "both", "":
		return CategoryBoth, nil
	}
	return 0, fmt.Errorf("%w: category %q", ErrBadParam, s)
}

// scriptInputs renders the view as plain maps and lists. Teams are
// identified by their key string, e.g. "Hawks (mixed)".
func scriptInputs(v *View) map[string]any {
	matches := make([]any, v.Len())
	for i := range v.Len() {
		m := v.Match(i)
		var players []string
		for _, t := range []*schedule.Team{m.Team1, m.Team2} {
			if t == nil {
				continue
			}
			for _, p := range t.Players {
				if p != nil {
					players = append(players, p.Name)
				}
			}
		}
		matches[i] = map[string]any{
			"index":    i,
			"team1":    teamID(m.Team1),
			"team2":    teamID(m.Team2),
			"division": m.Division.String(),
			"slot":     m.TimeSlot,
			"field":    m.Field,
			"referee":  teamID(m.Referee),
			"activity": m.Activity.String(),
			"locked":   m.Locked,
			"players":  players,
		}
	}

	var (
		teams      []any
		byTeam     = make(map[string][]int)
		refCounts  = make(map[string]int)
		gameCounts = make(map[string]int)
		games      []int
		refs       []int
	)
	for _, t := range v.Teams() {
		k := t.Key()
		names := make([]string, 0, len(t.Players))
		for _, p := range t.Players {
			if p != nil {
				names = append(names, p.Name)
			}
		}
		teams = append(teams, map[string]any{
			"key":      k.String(),
			"name":     t.Name,
			"division": t.Division.String(),
			"club":     t.Club(),
			"players":  names,
		})
		played := v.TeamMatches(k)
		byTeam[k.String()] = played
		refCounts[k.String()] = len(v.RefereeDuties(k))
		gameCounts[k.String()] = len(played)
		if len(played) > 0 {
			games = append(games, len(played))
			refs = append(refs, refCounts[k.String()])
		}
	}

	byField := make(map[string][]int)
	for _, f := range v.Fields() {
		byField[f] = v.OnField(f)
	}
	byDivision := make(map[string][]int)
	for _, d := range schedule.Divisions {
		if idxs := v.InDivision(d); len(idxs) > 0 {
			byDivision[d.String()] = idxs
		}
	}
	bySlot := make(map[int][]int)
	for _, s := range v.Slots() {
		bySlot[s] = v.InSlot(s)
	}
	playerGames := make(map[string]int)
	for _, p := range v.Players() {
		playerGames[p] = len(v.PlayerMatches(p))
	}
	var consecutive [][]int
	for _, pair := range ConsecutivePairs(v.Slots()) {
		consecutive = append(consecutive, []int{pair[0], pair[1]})
	}

	return map[string]any{
		"matches": matches,
		"teams":   teams,
		"helpers": map[string]any{
			"byTeam":        byTeam,
			"byField":       byField,
			"byDivision":    byDivision,
			"bySlot":        bySlot,
			"refereeCounts": refCounts,
			"gameCounts":    gameCounts,
			"playerGames":   playerGames,
			"slots":         v.Slots(),
			"consecutive":   consecutive,
			"gameStats":     statsMap(Summarize(games)),
			"refereeStats":  statsMap(Summarize(refs)),
		},
	}
}

func statsMap(st Stats) map[string]any {
	return map[string]any{"min": st.Min, "max": st.Max, "mean": st.Mean, "spread": st.Spread()}
}

func teamID(t *schedule.Team) string {
	if t == nil {
		return ""
	}
	return t.Key().String()
}

func intsOf(val ref.Val) ([]int, ref.Val) {
	l, ok := val.(traits.Lister)
	if !ok {
		return nil, types.NewErr("expected a list of ints, got %s", val.Type())
	}
	var out []int
	for it := l.Iterator(); it.HasNext() == types.True; {
		i, ok := it.Next().(types.Int)
		if !ok {
			return nil, types.NewErr("expected a list of ints")
		}
		out = append(out, int(i))
	}
	return out, nil
}

func spreadOf(val ref.Val) ref.Val {
	xs, bad := intsOf(val)
	if bad != nil {
		return bad
	}
	return types.Int(Summarize(xs).Spread())
}

func meanOf(val ref.Val) ref.Val {
	xs, bad := intsOf(val)
	if bad != nil {
		return bad
	}
	return types.Double(Summarize(xs).Mean)
}
