package core

// SuggestRoute — an auxiliary route-finder, not on the primary swap
// dispatch path (which always carries an explicit hop list from the
// factory per spec §4.1/§6.1). Grounded on the teacher's core/amm.go
// bestPath (Dijkstra over registered pools weighted by -log(price)),
// shrunk here to weight purely by hop count since the hub does not
// maintain a live price index outside of VLP reserves themselves —
// SimulateSwap on each candidate route is how a caller actually prices
// it; this utility only proposes candidate hop sequences to simulate.

import "fmt"

// routeEdge is one edge in the token graph used for route suggestion.
type routeEdge struct {
	to Token
}

// SuggestRoute does a breadth-first search over the VLPs known to r,
// returning the shortest hop sequence from tokenIn to tokenOut, or an
// error if no route exists within maxHops.
func (r *Router) SuggestRoute(tokenIn, tokenOut Token, maxHops int) ([]NextSwapPair, error) {
	if tokenIn == tokenOut {
		return nil, fmt.Errorf("%w: token_in == token_out", ErrDuplicateTokens)
	}
	r.mu.Lock()
	graph := make(map[Token][]routeEdge)
	for _, v := range r.vlps {
		p := v.Pair()
		graph[p.Token1] = append(graph[p.Token1], routeEdge{to: p.Token2})
		graph[p.Token2] = append(graph[p.Token2], routeEdge{to: p.Token1})
	}
	r.mu.Unlock()

	type frame struct {
		token Token
		path  []NextSwapPair
	}
	visited := map[Token]bool{tokenIn: true}
	queue := []frame{{token: tokenIn}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if len(cur.path) >= maxHops {
			continue
		}
		for _, edge := range graph[cur.token] {
			if visited[edge.to] {
				continue
			}
			nextPath := append(append([]NextSwapPair{}, cur.path...), NextSwapPair{TokenIn: cur.token, TokenOut: edge.to})
			if edge.to == tokenOut {
				return nextPath, nil
			}
			visited[edge.to] = true
			queue = append(queue, frame{token: edge.to, path: nextPath})
		}
	}
	return nil, fmt.Errorf("%w: no route from %s to %s within %d hops", ErrVlpNotFound, tokenIn, tokenOut, maxHops)
}
