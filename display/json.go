package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/teranos/jbind/errors"
)

// MarshalJSON marshals JSON compactly when JBIND_JSON=compact, pretty
// otherwise.
func MarshalJSON(v interface{}) ([]byte, error) {
	if os.Getenv("JBIND_JSON") == "compact" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// OutputJSON marshals v and prints it to w.
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
