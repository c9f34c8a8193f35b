package cartsync

import "cartsync/internal/domain"

// Merge combines a server cart with a local one. Lines on the server are kept
// as the server has them, including the quantity. Lines only present locally
// are appended with their local quantity and returned as localOnly so the
// caller can push them.
func Merge(server, local domain.Cart) (merged domain.Cart, localOnly []domain.CartLine) {
	server = server.Normalize()
	local = local.Normalize()

	lines := server.Clone().Lines
	for _, line := range local.Lines {
		if _, ok := server.Find(line.ProductID); ok {
			continue
		}
		lines = append(lines, line)
		localOnly = append(localOnly, line)
	}
	return domain.Cart{Lines: lines}, localOnly
}
