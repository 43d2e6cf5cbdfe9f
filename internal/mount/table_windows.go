//go:build windows

package mount

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// wmiProber reads Win32_NetworkConnection through WMI. That class exposes
// exactly what classification needs: LocalName (the letter), RemoteName
// (where it points), and ConnectionState ("Connected"/"Disconnected").
type wmiProber struct{}

func newPlatformProber() EntryProber {
	return wmiProber{}
}

// Entry queries WMI for the network connection at the given letter.
func (wmiProber) Entry(_ context.Context, letter string) (Entry, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		oleErr, ok := err.(*ole.OleError)
		// S_FALSE means COM was already initialized on this thread.
		if !ok || oleErr.Code() != 1 {
			return Entry{}, fmt.Errorf("initializing COM: %w", err)
		}
	}
	defer ole.CoUninitialize()

	locator, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return Entry{}, fmt.Errorf("creating WMI locator: %w", err)
	}
	defer locator.Release()

	wmi, err := locator.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return Entry{}, fmt.Errorf("querying WMI dispatch: %w", err)
	}
	defer wmi.Release()

	serviceRaw, err := oleutil.CallMethod(wmi, "ConnectServer", nil, `ROOT\CIMV2`)
	if err != nil {
		return Entry{}, fmt.Errorf("connecting to WMI namespace: %w", err)
	}

	service := serviceRaw.ToIDispatch()
	defer service.Release()

	query := fmt.Sprintf(
		"SELECT RemoteName, ConnectionState FROM Win32_NetworkConnection WHERE LocalName = '%s:'",
		strings.ToUpper(letter))

	resultRaw, err := oleutil.CallMethod(service, "ExecQuery", query)
	if err != nil {
		return Entry{}, fmt.Errorf("executing WMI query: %w", err)
	}

	result := resultRaw.ToIDispatch()
	defer result.Release()

	countVar, err := oleutil.GetProperty(result, "Count")
	if err != nil {
		return Entry{}, fmt.Errorf("reading WMI result count: %w", err)
	}

	if int(countVar.Val) == 0 {
		return Entry{}, nil
	}

	itemRaw, err := oleutil.CallMethod(result, "ItemIndex", 0)
	if err != nil {
		return Entry{}, fmt.Errorf("reading WMI result item: %w", err)
	}

	item := itemRaw.ToIDispatch()
	defer item.Release()

	remoteVar, err := oleutil.GetProperty(item, "RemoteName")
	if err != nil {
		return Entry{}, fmt.Errorf("reading RemoteName: %w", err)
	}

	stateVar, err := oleutil.GetProperty(item, "ConnectionState")
	if err != nil {
		return Entry{}, fmt.Errorf("reading ConnectionState: %w", err)
	}

	return Entry{
		Present:    true,
		RemoteName: remoteVar.ToString(),
		Connected:  strings.EqualFold(stateVar.ToString(), "Connected"),
	}, nil
}
