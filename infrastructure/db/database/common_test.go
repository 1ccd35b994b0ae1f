package database_test

import (
	"fmt"
	"io/ioutil"
	"os"
	"testing"

	"github.com/dashevo/dashspv/infrastructure/db/database"
	"github.com/dashevo/dashspv/infrastructure/db/database/ldb"
)

// databaseOpeners open each supported database type in a fresh directory.
var databaseOpeners = map[string]func(path string) (database.Database, error){
	"ldb": func(path string) (database.Database, error) {
		return ldb.NewLevelDB(path, 8)
	},
}

// testForAllDatabaseTypes runs testFunc against every supported database
// type, making sure they all behave the way the interfaces of this package
// describe.
func testForAllDatabaseTypes(t *testing.T, testName string,
	testFunc func(t *testing.T, db database.Database, testName string)) {

	for dbType, open := range databaseOpeners {
		func() {
			path, err := ioutil.TempDir("", testName)
			if err != nil {
				t.Fatalf("%s: TempDir unexpectedly failed: %s", testName, err)
			}
			defer os.RemoveAll(path)

			db, err := open(path)
			if err != nil {
				t.Fatalf("%s: opening %s unexpectedly failed: %s", testName, dbType, err)
			}
			defer func() {
				err := db.Close()
				if err != nil {
					t.Fatalf("%s: Close unexpectedly failed: %s", testName, err)
				}
			}()

			testFunc(t, db, fmt.Sprintf("%s: %s", dbType, testName))
		}()
	}
}

type keyValuePair struct {
	key   *database.Key
	value []byte
}

// populateDatabaseForTest stores ten serialized-list stand-ins under the
// lists bucket.
func populateDatabaseForTest(t *testing.T, db database.Database, testName string) []keyValuePair {
	bucket := database.MakeBucket([]byte("lists"))
	entries := make([]keyValuePair, 10)
	for i := range entries {
		entries[i] = keyValuePair{
			key:   bucket.Key([]byte(fmt.Sprintf("block%02d", i))),
			value: []byte(fmt.Sprintf("list%02d", i)),
		}
		err := db.Put(entries[i].key, entries[i].value)
		if err != nil {
			t.Fatalf("%s: Put unexpectedly failed: %s", testName, err)
		}
	}
	return entries
}
