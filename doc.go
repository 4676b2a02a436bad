// Package tson implements TSON parsing and serializing.
//
// TSON is JSON where every scalar carries its type. Each value is written
// as tag(payload), so a reader knows that a number is a byte rather than a
// long, or that a string is really a datetime or a uri, without a schema.
//
//	{
//	    "name": string("sensor-4"),
//	    "id": uint(4294967295),
//	    "level": byte(255),
//	    "ratio": double(0.3333333333),
//	    "seen": datetime("2024-11-01T16:00:00.0000000Z"),
//	    "tags": [
//	        string("outdoor"),
//	        null()
//	    ]
//	}
//
// Keys and bare strings are quoted as in JSON, objects keep the order of
// their members, and whitespace outside quoted strings is insignificant.
//
// Like the builtin json package, TSON can automatically convert between Go
// types and TSON values.
//
// For example, you could marshal and parse back a struct defined in Go as:
//
//	type Sensor struct {
//	  Name  string    `tson:"name"`
//	  ID    uint32    `tson:"id"`
//	  Level uint8     `tson:"level"`
//	  Seen  time.Time `tson:"seen"`
//	}
//
//	data, err := tson.Marshal(sensor)
//	...
//	err = tson.Unmarshal(data, &sensor)
//
// [Parse] returns a dynamic [Value] tree instead, and [Format] re-indents
// TSON text for people to read.
//
// If your type implements [Marshaler] or [Unmarshaler] then TSON uses that
// to convert it. A type that implements [encoding.TextMarshaler] is written
// as a string, and a [Describer] lists its own members.
//
// Package tson supports a very similar set of Go types to [encoding/json].
// Channels, functions and complex numbers cannot be serialized, and a value
// that refers back to one of its containers is reported as [ErrCycle]
// rather than looping.
package tson
