//go:build windows

package winapi

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Raw COM vtable calling infrastructure. The shell's internal virtual
// desktop interfaces are not dispatch-based, so they are invoked by
// vtable slot through the interface pointer.

// ComCall invokes the COM vtable method at the given slot. obj is an
// interface pointer (pointer to pointer to vtable). A negative HRESULT
// is returned as an error carrying the code.
func ComCall(obj uintptr, slot int, args ...uintptr) (uintptr, error) {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	fn := *(*uintptr)(unsafe.Pointer(vtbl + uintptr(slot)*unsafe.Sizeof(uintptr(0))))
	all := make([]uintptr, 0, 1+len(args))
	all = append(all, obj)
	all = append(all, args...)
	ret, _, _ := syscall.SyscallN(fn, all...)
	if int32(ret) < 0 {
		return ret, HResultError(uint32(ret))
	}
	return ret, nil
}

// ComQueryInterface calls IUnknown::QueryInterface (slot 0) for iid.
func ComQueryInterface(obj uintptr, iid unsafe.Pointer) (uintptr, error) {
	var out uintptr
	if _, err := ComCall(obj, 0, uintptr(iid), uintptr(unsafe.Pointer(&out))); err != nil {
		return 0, err
	}
	if out == 0 {
		return 0, fmt.Errorf("winapi: QueryInterface returned null")
	}
	return out, nil
}

// ComRelease calls IUnknown::Release (slot 2). Safe on zero.
func ComRelease(obj uintptr) {
	if obj != 0 {
		vtbl := *(*uintptr)(unsafe.Pointer(obj))
		fn := *(*uintptr)(unsafe.Pointer(vtbl + 2*unsafe.Sizeof(uintptr(0))))
		syscall.SyscallN(fn, obj)
	}
}

// HResultError is a failed HRESULT from a native call.
type HResultError uint32

func (e HResultError) Error() string {
	return fmt.Sprintf("HRESULT 0x%08X", uint32(e))
}

// IsNoInterface reports whether err is E_NOINTERFACE, the answer the
// shell gives when an interface identity guess is wrong for this
// build.
func IsNoInterface(err error) bool {
	hr, ok := err.(HResultError)
	return ok && uint32(hr) == 0x80004002
}

// IsElementNotFound reports whether err is TYPE_E_ELEMENTNOTFOUND, the
// code FindDesktop answers for an id the shell does not know.
func IsElementNotFound(err error) bool {
	hr, ok := err.(HResultError)
	return ok && uint32(hr) == 0x8002802B
}

// --- HSTRING helpers ---
//
// Desktop names travel as WinRT HSTRINGs on builds that expose them.

var (
	modCombase = windows.NewLazySystemDLL("combase.dll")

	procWindowsCreateString       = modCombase.NewProc("WindowsCreateString")
	procWindowsDeleteString       = modCombase.NewProc("WindowsDeleteString")
	procWindowsGetStringRawBuffer = modCombase.NewProc("WindowsGetStringRawBuffer")
)

// NewHString allocates an HSTRING for s. The caller must release it
// with DeleteHString.
func NewHString(s string) (uintptr, error) {
	buf, err := windows.UTF16FromString(s)
	if err != nil {
		return 0, err
	}
	var h uintptr
	// Length excludes the trailing NUL.
	ret, _, _ := procWindowsCreateString.Call(
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)-1),
		uintptr(unsafe.Pointer(&h)),
	)
	if int32(ret) < 0 {
		return 0, HResultError(uint32(ret))
	}
	return h, nil
}

// DeleteHString releases an HSTRING. Safe on zero.
func DeleteHString(h uintptr) {
	if h != 0 {
		procWindowsDeleteString.Call(h)
	}
}

// HStringToString copies an HSTRING's contents into a Go string.
func HStringToString(h uintptr) string {
	if h == 0 {
		return ""
	}
	var length uint32
	ptr, _, _ := procWindowsGetStringRawBuffer.Call(h, uintptr(unsafe.Pointer(&length)))
	if ptr == 0 || length == 0 {
		return ""
	}
	return windows.UTF16ToString(unsafe.Slice((*uint16)(unsafe.Pointer(ptr)), length))
}
