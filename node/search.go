package node

/*
If key is found in node n, return its index i.
Else, return the index j where the key would have resided if it was present in the node.
Basically, lower bound of the key in the node. For an internal node this coincides with
the position of the child pointer to descend into when the boolean is false.
With duplicate keys the first match is returned.
*/
func (n *Node[K]) Search(key K) (int, bool) {
	low, high := 0, len(n.keys)
	var mid int
	for low < high {
		mid = (low + high) / 2
		if n.keys[mid] < key {
			low = mid + 1
		} else {
			high = mid
		}
	}
	return low, low < len(n.keys) && n.keys[low] == key
}

// MustMoveRight reports whether a reader looking for key has to follow the sibling link:
// a split moved everything above the high key to the right.
func (n *Node[K]) MustMoveRight(key K) bool {
	return key > n.highKey && !n.link.IsNull()
}
