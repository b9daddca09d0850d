// Package device holds the request builders and status parsers for the two
// board types on the bus.
//
// # Boards
//
//   - Lane board (one per lane): lid, arm, vial and cleaning valves, stirrer,
//     thermal and reflux loops. Status arrives as a 16-byte RespLaneStatus.
//   - Utility board (one per system): main supply valves, pumps, and the
//     safety chain. Status arrives as a RespUtilityStatus of at least 3 bytes.
//
// Everything here is pure: builders return protocol.Frame values and parsers
// return a status value plus an ok flag. A parser reports ok=false for a
// wrong message type or a short payload; it never returns an error.
//
// # Usage
//
//	lane := device.Lane{Address: 1}
//	resp, ok := b.SendAndReceive(ctx, lane.StatusRequest(), bus.DefaultTimeout)
//	if ok {
//	    if st, ok := device.ParseLaneStatus(resp); ok {
//	        fmt.Println(st.ThermalTempC)
//	    }
//	}
package device
