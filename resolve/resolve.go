// Package resolve turns raw instruction pointers into reportable names.
//
// Resolution proceeds in stages: the dynamic loader names the defining
// object and its load base; the library filter may end the lookup right
// there; a pre-resolved symbol from the loader is used when present;
// otherwise the object's ELF view is consulted for the symbol defined
// closest at or below the address. Views are cached per object path and
// never evicted; a failed open is not cached and will be retried on the next
// address from the same object.
package resolve

import (
	"math"

	"github.com/coregx/ctrace/elfview"
	"github.com/coregx/ctrace/filter"
	"github.com/coregx/ctrace/loader"
	"github.com/coregx/ctrace/wordlist"
)

// Kind classifies a resolution result.
type Kind int

const (
	// Suppressed means a filter decided the call must not be reported.
	Suppressed Kind = iota

	// FullName means both the object and the function name are known.
	FullName

	// AddrOnly means the object is known but the function is not; the
	// caller reports the raw address.
	AddrOnly
)

// Result is the outcome of resolving one instruction pointer.
type Result struct {
	Kind Kind

	// DSO is the basename of the defining object; empty when even the
	// loader could not place the address.
	DSO string

	// Func is the function name; only meaningful for FullName.
	Func string
}

// Resolver owns the DSO cache and applies the filter policies.
//
// Not safe for concurrent use.
type Resolver struct {
	ld   loader.Loader
	libs *filter.Libs
	funs *filter.Funs
	diag func(format string, args ...any)

	// cache maps the loader-reported object path to its parsed view.
	// Entries are never evicted; the mapped images live for the process.
	cache map[string]*elfview.View

	// Statistics for cache behavior tests and tuning.
	hits   uint64
	misses uint64
}

// New builds a resolver over the given loader and filter policies. diag
// receives one-line diagnostics for degraded lookups and may be nil.
func New(ld loader.Loader, libs *filter.Libs, funs *filter.Funs, diag func(string, ...any)) *Resolver {
	if diag == nil {
		diag = func(string, ...any) {}
	}
	return &Resolver{
		ld:    ld,
		libs:  libs,
		funs:  funs,
		diag:  diag,
		cache: make(map[string]*elfview.View),
	}
}

// Resolve maps pc to a result, applying the library filter to the defining
// object and the function filter to the resolved name.
func (r *Resolver) Resolve(pc uintptr) Result {
	info, ok := r.ld.Query(pc)
	if !ok {
		// The loader cannot place the address. The function is
		// unresolvable, which a whitelist suppresses.
		if !r.funs.Admit("", false) {
			return Result{Kind: Suppressed}
		}
		return Result{Kind: AddrOnly}
	}

	if !r.libs.Admit(info.Path) {
		return Result{Kind: Suppressed}
	}
	base := wordlist.Basename(info.Path)

	if info.SymName != "" {
		if !r.funs.Admit(info.SymName, true) {
			return Result{Kind: Suppressed}
		}
		return Result{Kind: FullName, DSO: base, Func: info.SymName}
	}

	v := r.view(info.Path)
	if v == nil {
		if !r.funs.Admit("", false) {
			return Result{Kind: Suppressed}
		}
		return Result{Kind: AddrOnly, DSO: base}
	}

	name, found := nearestSymbol(v, uint64(info.Base), uint64(pc))
	if !r.funs.Admit(name, found) {
		return Result{Kind: Suppressed}
	}
	if !found {
		return Result{Kind: AddrOnly, DSO: base}
	}
	return Result{Kind: FullName, DSO: base, Func: name}
}

// view returns the cached ELF view for path, opening and caching it on first
// sight. A failed open is not cached, so the next address from the same
// object retries it; each failed attempt is reported through diag.
func (r *Resolver) view(path string) *elfview.View {
	if v, ok := r.cache[path]; ok {
		r.hits++
		return v
	}
	r.misses++
	v, err := elfview.Open(path)
	if err != nil {
		r.diag("cannot inspect %s: %v", path, err)
		return nil
	}
	r.cache[path] = v
	return v
}

// CacheStats returns the number of cache hits and misses so far.
func (r *Resolver) CacheStats() (hits, misses uint64) {
	return r.hits, r.misses
}

// nearestSymbol finds the symbol defined closest to pc at or below it.
//
// Symbols whose name starts with '$' or whose name offset falls outside the
// string table are skipped, as are unnamed records.
func nearestSymbol(v *elfview.View, base, pc uint64) (string, bool) {
	var (
		bestName string
		bestGap  uint64 = math.MaxUint64
		found    bool
	)
	for i := 0; i < v.NumSymbols(); i++ {
		s := v.Symbol(i)
		name, ok := v.NameAt(s.NameOff)
		if !ok || name == "" || name[0] == '$' {
			continue
		}
		target := biasedTarget(s.Value, base, pc)
		if s.Value > target {
			continue
		}
		if gap := target - s.Value; gap < bestGap {
			bestName, bestGap, found = name, gap, true
		}
	}
	return bestName, found
}

// biasedTarget returns the address a symbol value is compared against.
//
// A symbol table can hold absolute addresses (the main executable) or
// load-base-relative offsets (shared objects). The two cases are told apart
// per symbol: a value above the load base is taken as absolute and compared
// against pc itself, anything else as an offset compared against pc minus
// the load base. The distinction is a documented heuristic, not a guarantee.
func biasedTarget(symVal, base, pc uint64) uint64 {
	if symVal > base {
		return pc
	}
	return pc - base
}
