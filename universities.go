package main

import "net/http"

// Static reference list served to the match form. Order matters to the
// frontend, so it is kept as a slice.
var universities = []string{
	"University of Colombo",
	"University of Peradeniya",
	"University of Moratuwa",
	"University of Sri Jayewardenepura",
	"University of Kelaniya",
	"University of Ruhuna",
	"Open University of Sri Lanka",
	"SLIIT",
	"NSBM Green University",
	"Informatics Institute of Technology (IIT)",
	"Sri Lanka Technological Campus (SLTC)",
	"General Sir John Kotelawala Defence University (KDU)",
}

func universitiesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "invalid_method")
		return
	}
	writeJSON(w, http.StatusOK, universities)
}
