// Package api serves the Walls 2048 REST API over gorilla/mux.
//
// Sessions:
//   - POST   /api/sessions                 create a session ({"config_id": "pillars"}, empty body = default layout)
//   - GET    /api/sessions                 list sessions (?sort=accessed|created|score&order=desc|asc&limit=N)
//   - GET    /api/sessions/{id}            session info with game state and config
//   - DELETE /api/sessions/{id}            drop a session
//
// Play:
//   - GET  /api/sessions/{id}/state        current game state
//   - POST /api/sessions/{id}/move         {"direction": "left", "reset": false}
//   - POST /api/sessions/{id}/bulk-move    {"moves": ["up", "left"], "reset": false}, at most 50 per call
//   - POST /api/sessions/{id}/reset        fresh board on the same layout
//   - GET  /api/sessions/{id}/history      ?page=1&limit=20&order=desc
//
// Saves:
//   - GET /api/sessions/{id}/save          export the versioned save blob
//   - PUT /api/sessions/{id}/save          {"data": "..."} restores a blob into the session
//
// Layouts:
//   - GET  /api/configs                    list board layouts
//   - GET  /api/configs/{name}             one layout
//   - POST /api/configs                    add a layout
//
// Other routes: /ws?session={id} upgrades to the turn stream of
// transport/websocket, /healthz reports uptime and /metrics returns the
// service counters.
//
// A move that changes nothing is not an error: the response carries
// "success": false and the no-move message. Errors are JSON bodies of the
// form {"error": "..."}; unknown sessions and layouts map to 404, bad
// directions and corrupt saves to 400.
package api
