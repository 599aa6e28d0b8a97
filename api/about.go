/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package api

import (
	"encoding/json"
	"net/http"

	"devt.de/krotik/eliasgraph/config"
	"devt.de/krotik/eliasgraph/server"
)

/*
EndpointAbout is the about endpoint URL. Returns an object with version
information and the registered graphs.

	product  : Name of the API provider (EliasGraph)
	version  : Version of the API provider
	storage  : Name of the snapshot storage
	graphs   : Names of all graphs
*/
const EndpointAbout = "/about"

/*
aboutHandler handles about requests.
*/
type aboutHandler struct {
	s *server.Server
}

/*
ServeHTTP returns about data.
*/
func (a *aboutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data := map[string]interface{}{
		"product": "EliasGraph",
		"version": config.ProductVersion,
		"storage": a.s.Storage().Name(),
		"graphs":  a.s.Graphs(),
	}

	// Write data

	w.Header().Set("content-type", "application/json; charset=utf-8")

	ret := json.NewEncoder(w)
	ret.Encode(data)
}
