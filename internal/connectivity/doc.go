// Package connectivity tracks whether the delivery endpoint is reachable
// and notifies subscribers on online/offline transitions. The sync
// controller only reads this signal; nothing in satchel ever sets it.
package connectivity
