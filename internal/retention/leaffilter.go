package retention

import "github.com/hurricup/leaks-collector/internal/hprof"

// leafInstanceClasses are value-type classes whose instances are never
// useful intermediate hops on a retention path: they hold no references
// worth walking through, only scalar payloads.
var leafInstanceClasses = map[string]bool{
	"java.lang.String":    true,
	"java.lang.Byte":      true,
	"java.lang.Short":     true,
	"java.lang.Integer":   true,
	"java.lang.Long":      true,
	"java.lang.Float":     true,
	"java.lang.Double":    true,
	"java.lang.Boolean":   true,
	"java.lang.Character": true,
}

// leafArrayClasses are array classes treated as leaves for the same reason.
var leafArrayClasses = map[string]bool{
	"java.lang.String[]": true,
}

// weakReferenceBases are the JDK classes whose subclasses hold their
// referent weakly (or not at all, once cleared); a path through one of
// these does not demonstrate a strong retention.
var weakReferenceBases = map[string]bool{
	"java.lang.ref.WeakReference":      true,
	"java.lang.ref.SoftReference":      true,
	"java.lang.ref.PhantomReference":   true,
	"java.lang.ref.FinalizerReference": true,
	"sun.misc.Cleaner":                 true,
	"jdk.internal.ref.Cleaner":         true,
}

// IsLeaf reports whether a node is a terminal, uninteresting hop: a boxed
// value, a string, or a string array.
func IsLeaf(n Node) bool {
	switch n.Kind {
	case KindInstance:
		return leafInstanceClasses[n.ClassName]
	case KindObjectArray:
		return leafArrayClasses[n.ArrayClassName]
	default:
		return false
	}
}

// IsWeakReferenceHierarchy reports whether className is, or descends from,
// one of the JDK's weak/soft/phantom reference base classes.
func IsWeakReferenceHierarchy(oracle GraphOracle, className string) bool {
	seen := make(map[string]bool)
	cur := className
	for cur != "" && !seen[cur] {
		if weakReferenceBases[cur] {
			return true
		}
		seen[cur] = true
		var ok bool
		cur, ok = oracle.SuperclassName(cur)
		if !ok {
			return false
		}
	}
	return false
}

// strongRootKinds are GC root kinds that genuinely keep an object alive and
// are eligible to terminate a retention walk.
var strongRootKinds = map[RootKind]bool{
	hprof.RootJNIGlobal:        true,
	hprof.RootJNILocal:         true,
	hprof.RootJavaFrame:        true,
	hprof.RootNativeStack:      true,
	hprof.RootThreadBlock:      true,
	hprof.RootMonitorUsed:      true,
	hprof.RootThreadObject:     true,
	hprof.RootJNIMonitor:       true,
	hprof.RootReferenceCleanup: true,
	hprof.RootVMInternal:       true,
}

// IsStrongRoot reports whether kind keeps objects alive in a way the walker
// should terminate a path on.
func IsStrongRoot(kind RootKind) bool {
	return strongRootKinds[kind]
}
