package hprof

// RootKind names the kind of GC root an object was recorded as.
type RootKind string

const (
	RootJNIGlobal        RootKind = "JNI_GLOBAL"
	RootJNILocal         RootKind = "JNI_LOCAL"
	RootJavaFrame        RootKind = "JAVA_FRAME"
	RootNativeStack      RootKind = "NATIVE_STACK"
	RootThreadBlock      RootKind = "THREAD_BLOCK"
	RootMonitorUsed      RootKind = "MONITOR_USED"
	RootThreadObject     RootKind = "THREAD_OBJECT"
	RootJNIMonitor       RootKind = "JNI_MONITOR"
	RootReferenceCleanup RootKind = "REFERENCE_CLEANUP"
	RootVMInternal       RootKind = "VM_INTERNAL"

	RootStickyClass    RootKind = "STICKY_CLASS"
	RootFinalizing     RootKind = "FINALIZING"
	RootDebugger       RootKind = "DEBUGGER"
	RootUnreachable    RootKind = "UNREACHABLE"
	RootInternedString RootKind = "INTERNED_STRING"
	RootUnknown        RootKind = "UNKNOWN"
)

// GCRoot pairs an object id with the root kind it was recorded under.
type GCRoot struct {
	ObjectID uint64
	Kind     RootKind
}

func rootKindForTag(tag HeapDumpTag) RootKind {
	switch tag {
	case HeapTagRootJNIGlobal:
		return RootJNIGlobal
	case HeapTagRootJNILocal:
		return RootJNILocal
	case HeapTagRootJavaFrame:
		return RootJavaFrame
	case HeapTagRootNativeStack:
		return RootNativeStack
	case HeapTagRootStickyClass:
		return RootStickyClass
	case HeapTagRootThreadBlock:
		return RootThreadBlock
	case HeapTagRootMonitorUsed:
		return RootMonitorUsed
	case HeapTagRootThreadObject:
		return RootThreadObject
	case HeapTagRootJNIMonitor:
		return RootJNIMonitor
	case HeapTagRootReferenceClean:
		return RootReferenceCleanup
	case HeapTagRootVMInternal:
		return RootVMInternal
	case HeapTagRootInternedString:
		return RootInternedString
	case HeapTagRootFinalizing:
		return RootFinalizing
	case HeapTagRootDebugger:
		return RootDebugger
	case HeapTagRootUnreachable:
		return RootUnreachable
	default:
		return RootUnknown
	}
}
