// Copyright 2024-2025 The ColAgg Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.uber.org/zap"

	pqLocal "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/vecflow/colagg/pkg/chunk"
	"github.com/vecflow/colagg/pkg/common"
	"github.com/vecflow/colagg/pkg/compute"
	"github.com/vecflow/colagg/pkg/util"
)

func init() {
	cobra.OnInitialize(loadConfig)
	initGenCmd()
	initRunCmd()
}

var benchCfg = &util.Config{}

///root cmd

var info = "aggbench"
var RootCmd = &cobra.Command{
	Use:          "aggbench",
	Short:        info,
	Long:         info,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("use aggbench --help or -h")
	},
}

func initDebugOptions() {
	benchCfg.Debug.LogLevel = viper.GetString("debug.logLevel")
	benchCfg.Debug.PrintPlan = viper.GetBool("debug.printPlan")
	benchCfg.Debug.PrintResult = viper.GetBool("debug.printResult")
	benchCfg.Debug.MaxOutputRowCount = viper.GetInt("debug.maxOutputRowCount")
	benchCfg.Debug.OwnerChecks = viper.GetBool("debug.ownerChecks")
	benchCfg.Debug.CheckScan = viper.GetBool("debug.checkScan")
	benchCfg.Debug.ShowRaw = viper.GetBool("debug.showRaw")
	benchCfg.Debug.ResultFile = viper.GetString("debug.resultFile")
	util.SetupLogger(benchCfg.Debug.LogLevel)
	util.EnableOwnerChecks = benchCfg.Debug.OwnerChecks
}

// tableSchema describes the scanned file: column order, types, names and
// the group columns of the run.
type tableSchema struct {
	cols      []int
	types     []common.LType
	colIdx    map[string]int
	groupCols []int
}

//sales table used when no table def is given. price carries unscaled cents.

func salesSchema() *tableSchema {
	return &tableSchema{
		cols: []int{0, 1, 2},
		types: []common.LType{
			common.VarcharType(),
			common.IntegerType(),
			common.DecimalType(12, 2),
		},
		colIdx: map[string]int{
			"region": 0,
			"qty":    1,
			"price":  2,
		},
		groupCols: []int{0},
	}
}

// loadSchema picks the built in sales schema or builds one from the table
// def named by scan.table. Key columns of the def become group columns.
func loadSchema(cfg *util.Config) (*tableSchema, error) {
	if cfg.Scan.Table == "" {
		return salesSchema(), nil
	}
	def, err := util.LoadTableDef(cfg.Scan.Table)
	if err != nil {
		return nil, err
	}
	schema := &tableSchema{
		colIdx: make(map[string]int, len(def.Columns)),
	}
	for i, col := range def.Columns {
		typ, err := typeFromDef(col)
		if err != nil {
			return nil, err
		}
		schema.cols = append(schema.cols, i)
		schema.types = append(schema.types, typ)
		schema.colIdx[col.Name] = i
		if col.Key {
			schema.groupCols = append(schema.groupCols, i)
		}
	}
	if len(schema.groupCols) == 0 {
		return nil, fmt.Errorf("table def %s marks no key column", cfg.Scan.Table)
	}
	return schema, nil
}

func typeFromDef(col util.TableDefColumn) (common.LType, error) {
	switch strings.ToLower(col.Typ) {
	case "bool", "boolean":
		return common.BooleanType(), nil
	case "tinyint":
		return common.TinyintType(), nil
	case "smallint":
		return common.SmallintType(), nil
	case "int", "integer":
		return common.IntegerType(), nil
	case "bigint":
		return common.BigintType(), nil
	case "float":
		return common.FloatType(), nil
	case "double":
		return common.DoubleType(), nil
	case "date":
		return common.Date32Type(), nil
	case "date64":
		return common.Date64Type(), nil
	case "timestamp":
		return common.TimestampType(), nil
	case "timestamp_s":
		return common.TimestampSecType(), nil
	case "timestamp_ms":
		return common.TimestampMSType(), nil
	case "timestamp_ns":
		return common.TimestampNSType(), nil
	case "varchar", "string":
		if col.Width > 0 {
			return common.VarcharType2(col.Width), nil
		}
		return common.VarcharType(), nil
	case "decimal":
		return common.DecimalType(col.Width, col.Scale), nil
	default:
		return common.LType{}, fmt.Errorf("column %s has unknown type %q", col.Name, col.Typ)
	}
}

type saleRow struct {
	Region string `parquet:"name=region, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Qty    *int32 `parquet:"name=qty, type=INT32, repetitiontype=OPTIONAL"`
	Price  *int64 `parquet:"name=price, type=INT64, convertedtype=DECIMAL, scale=2, precision=12, repetitiontype=OPTIONAL"`
}

//gen cmd

var genInfo = "generate sales data in parquet format"
var genCmd = &cobra.Command{
	Use:   "gen",
	Short: genInfo,
	Long:  genInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		initGenCfg()
		return runGen(benchCfg)
	},
}

func initGenCfg() {
	initDebugOptions()
	benchCfg.Bench.Rows = viper.GetInt("bench.rows")
	benchCfg.Bench.Groups = viper.GetInt("bench.groups")
	benchCfg.Bench.Seed = viper.GetInt64("bench.seed")
	benchCfg.Bench.Skew = viper.GetFloat64("bench.skew")
	benchCfg.Scan.Path = viper.GetString("scan.path")
}

func initGenCmd() {
	RootCmd.AddCommand(genCmd)
	genCmd.Flags().IntVar(&benchCfg.Bench.Rows, "rows", 100000, "row count")
	genCmd.Flags().IntVar(&benchCfg.Bench.Groups, "groups", 64, "distinct region count")
	genCmd.Flags().Int64Var(&benchCfg.Bench.Seed, "seed", 1, "random seed")
	genCmd.Flags().Float64Var(&benchCfg.Bench.Skew, "skew", 0,
		"zipf exponent for the region draw, 0 means uniform")
	genCmd.Flags().StringVar(&benchCfg.Scan.Path, "path", "sales.parquet", "output file path")

	viper.BindPFlag("bench.rows", genCmd.Flags().Lookup("rows"))
	viper.BindPFlag("bench.groups", genCmd.Flags().Lookup("groups"))
	viper.BindPFlag("bench.seed", genCmd.Flags().Lookup("seed"))
	viper.BindPFlag("bench.skew", genCmd.Flags().Lookup("skew"))
	viper.BindPFlag("scan.path", genCmd.Flags().Lookup("path"))
}

func runGen(cfg *util.Config) error {
	if cfg.Bench.Rows <= 0 || cfg.Bench.Groups <= 0 {
		return fmt.Errorf("rows %d and groups %d must be positive",
			cfg.Bench.Rows, cfg.Bench.Groups)
	}
	rnd := rand.New(rand.NewSource(cfg.Bench.Seed))
	drawRegion := func() int { return rnd.Intn(cfg.Bench.Groups) }
	if cfg.Bench.Skew != 0 {
		//rand.NewZipf wants an exponent above one
		if cfg.Bench.Skew <= 1 {
			return fmt.Errorf("skew %v must be 0 (uniform) or above 1 (zipf)", cfg.Bench.Skew)
		}
		z := rand.NewZipf(rnd, cfg.Bench.Skew, 1, uint64(cfg.Bench.Groups-1))
		drawRegion = func() int { return int(z.Uint64()) }
	}
	fw, err := pqLocal.NewLocalFileWriter(cfg.Scan.Path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(saleRow), 2)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	start := time.Now()
	for i := 0; i < cfg.Bench.Rows; i++ {
		row := saleRow{
			Region: fmt.Sprintf("r%04d", drawRegion()),
		}
		//one row in twenty keeps qty null, one in ten keeps price null
		if rnd.Intn(20) != 0 {
			qty := int32(1 + rnd.Intn(100))
			row.Qty = &qty
		}
		if rnd.Intn(10) != 0 {
			price := int64(100 + rnd.Intn(10000000))
			row.Price = &price
		}
		if err = pw.Write(row); err != nil {
			_ = fw.Close()
			return err
		}
	}
	if err = pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	if err = fw.Close(); err != nil {
		return err
	}
	util.Info("generated sales data",
		zap.String("path", cfg.Scan.Path),
		zap.Int("rows", cfg.Bench.Rows),
		zap.Int("groups", cfg.Bench.Groups),
		zap.Float64("skew", cfg.Bench.Skew),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

//run cmd

var runInfo = "run grouped aggregation over sales data"
var runCmd = &cobra.Command{
	Use:   "run",
	Short: runInfo,
	Long:  runInfo,
	RunE: func(cmd *cobra.Command, args []string) error {
		initRunCfg()
		return runAgg(benchCfg)
	},
}

func initRunCfg() {
	initDebugOptions()
	benchCfg.Bench.Partitions = viper.GetInt("bench.partitions")
	benchCfg.Bench.Aggr = viper.GetString("bench.aggr")
	benchCfg.Bench.Seed = viper.GetInt64("bench.seed")
	benchCfg.Bench.Unscaled = viper.GetBool("bench.unscaled")
	benchCfg.Scan.Path = viper.GetString("scan.path")
	benchCfg.Scan.Table = viper.GetString("scan.table")
}

func initRunCmd() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&benchCfg.Bench.Partitions, "partitions", 4, "partition count")
	runCmd.Flags().StringVar(&benchCfg.Bench.Aggr, "aggr",
		"max:qty,min:qty,sum:price,count:price", "aggregates as fun:col pairs")
	runCmd.Flags().Int64Var(&benchCfg.Bench.Seed, "seed", 1, "partition hash seed")
	runCmd.Flags().BoolVar(&benchCfg.Bench.Unscaled, "unscaled", false,
		"print decimal results as unscaled integers")
	runCmd.Flags().StringVar(&benchCfg.Scan.Path, "path", "sales.parquet", "input file path")
	runCmd.Flags().StringVar(&benchCfg.Scan.Table, "table", "",
		"table def toml, empty means the built in sales table")

	viper.BindPFlag("bench.partitions", runCmd.Flags().Lookup("partitions"))
	viper.BindPFlag("bench.aggr", runCmd.Flags().Lookup("aggr"))
	viper.BindPFlag("bench.seed", runCmd.Flags().Lookup("seed"))
	viper.BindPFlag("bench.unscaled", runCmd.Flags().Lookup("unscaled"))
	viper.BindPFlag("scan.path", runCmd.Flags().Lookup("path"))
	viper.BindPFlag("scan.table", runCmd.Flags().Lookup("table"))
}

// parseAggrDefs turns "max:qty,sum:price" into aggregate definitions.
// Columns go by name or by index.
func parseAggrDefs(schema *tableSchema, aggrs string) ([]compute.AggDef, error) {
	var defs []compute.AggDef
	for _, part := range strings.Split(aggrs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fun, colName, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("aggr %q misses a column", part)
		}
		col, has := schema.colIdx[colName]
		if !has {
			idx, err := strconv.Atoi(colName)
			if err != nil || idx < 0 || idx >= len(schema.cols) {
				return nil, fmt.Errorf("aggr %q names unknown column %q", part, colName)
			}
			col = idx
		}
		defs = append(defs, compute.AggDef{Fun: fun, Col: col})
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("aggr %q holds no aggregates", aggrs)
	}
	return defs, nil
}

// scanCheck reruns every aggregate globally over the scanned chunks with
// the vector reductions. Per chunk partials land in a small vector that a
// final reduction folds, so the totals must line up with the grouped
// results rolled up over all groups.
type scanCheck struct {
	defs   []compute.AggDef
	types  []common.LType
	parts  [][]*chunk.Value
	counts []int
}

func newScanCheck(defs []compute.AggDef, types []common.LType) *scanCheck {
	return &scanCheck{
		defs:   defs,
		types:  types,
		parts:  make([][]*chunk.Value, len(defs)),
		counts: make([]int, len(defs)),
	}
}

func (sc *scanCheck) fold(data *chunk.Chunk) {
	cnt := data.Card()
	for i, def := range sc.defs {
		vec := data.Data[def.Col]
		switch def.Fun {
		case compute.AggMax:
			sc.parts[i] = append(sc.parts[i], chunk.MaxOnVector(vec, cnt))
		case compute.AggMin:
			sc.parts[i] = append(sc.parts[i], chunk.MinOnVector(vec, cnt))
		case compute.AggSum:
			sc.parts[i] = append(sc.parts[i], chunk.SumOnVector(vec, cnt))
		case compute.AggCount:
			sc.counts[i] += chunk.CountValidOnVector(vec, cnt)
		}
	}
}

func (sc *scanCheck) log() {
	for i, def := range sc.defs {
		name := fmt.Sprintf("%s(col%d)", def.Fun, def.Col)
		rendered := ""
		if def.Fun == compute.AggCount {
			rendered = strconv.Itoa(sc.counts[i])
		} else {
			rendered = sc.total(i, def).String()
		}
		util.Info("scan check",
			zap.String("agg", name),
			zap.String("value", rendered))
	}
}

func (sc *scanCheck) total(i int, def compute.AggDef) *chunk.Value {
	parts := sc.parts[i]
	typ := sc.types[def.Col]
	if def.Fun == compute.AggSum && len(parts) > 0 {
		typ = parts[0].Typ
	}
	vec := chunk.NewFlatVector(typ, max(len(parts), 1))
	for row, part := range parts {
		vec.SetValue(row, part)
	}
	switch def.Fun {
	case compute.AggMax:
		return chunk.MaxOnVector(vec, len(parts))
	case compute.AggMin:
		return chunk.MinOnVector(vec, len(parts))
	default:
		return chunk.SumOnVector(vec, len(parts))
	}
}

func runAgg(cfg *util.Config) error {
	schema, err := loadSchema(cfg)
	if err != nil {
		return err
	}
	defs, err := parseAggrDefs(schema, cfg.Bench.Aggr)
	if err != nil {
		return err
	}
	plan, err := compute.NewAggPlan(schema.types, schema.groupCols, defs,
		cfg.Bench.Partitions, uint64(cfg.Bench.Seed))
	if err != nil {
		return err
	}
	if cfg.Debug.PrintPlan {
		fmt.Println(plan.Explain())
	}

	src, err := compute.NewParquetSource(cfg.Scan.Path, schema.cols, schema.types)
	if err != nil {
		return err
	}
	defer src.Close()

	pa, err := compute.NewParallelAgg(plan)
	if err != nil {
		return err
	}
	pa.Start(context.Background())

	var check *scanCheck
	if cfg.Debug.CheckScan {
		check = newScanCheck(defs, schema.types)
	}

	start := time.Now()
	rows := 0
	data := &chunk.Chunk{}
	data.Init(schema.types, util.DefaultVectorSize)
	for {
		if err = src.Read(data, util.DefaultVectorSize); err != nil {
			return err
		}
		if data.Card() == 0 {
			break
		}
		rows += data.Card()
		if cfg.Debug.ShowRaw {
			data.Print()
		}
		if check != nil {
			check.fold(data)
		}
		if err = pa.Sink(data); err != nil {
			return err
		}
	}
	table, err := pa.Finish()
	if err != nil {
		return err
	}
	util.Info("aggregation done",
		zap.Int("rows", rows),
		zap.Int("groups", table.GroupCount()),
		zap.Uint64("distinctEst", table.DistinctEst()),
		zap.Int("memBytes", table.MemSize()),
		zap.Duration("elapsed", time.Since(start)))
	if check != nil {
		check.log()
	}
	if cfg.Debug.PrintPlan {
		fmt.Println(table.Explain())
	}
	return printResult(cfg, plan, table)
}

func printResult(cfg *util.Config, plan *compute.AggPlan, table *compute.GroupedAggTable) error {
	resTypes := plan.ResultTypes()
	result := &chunk.Chunk{}
	result.Init(resTypes, util.DefaultVectorSize)

	var exec *compute.ExprExec
	view := result
	if cfg.Bench.Unscaled {
		var err error
		exec, err = unscaledExec(resTypes)
		if err != nil {
			return err
		}
		view = &chunk.Chunk{}
		view.Init(unscaledTypes(resTypes), util.DefaultVectorSize)
	}

	var resFile *os.File
	if cfg.Debug.ResultFile != "" {
		var err error
		resFile, err = os.Create(cfg.Debug.ResultFile)
		if err != nil {
			return err
		}
		defer resFile.Close()
	}

	printed := 0
	state := &compute.AggScanState{}
	for {
		cnt := table.ScanOrdered(state, result)
		if cnt == 0 {
			break
		}
		if exec != nil {
			if err := exec.ExecuteExprs(result, view); err != nil {
				return err
			}
		}
		if resFile != nil {
			if err := view.SaveToFile(resFile); err != nil {
				return err
			}
		}
		if cfg.Debug.PrintResult && printed < cfg.Debug.MaxOutputRowCount {
			show := printBudget(cnt, printed, cfg.Debug.MaxOutputRowCount)
			view.SetCard(show)
			view.Print2(fmt.Sprintf("row %d: ", printed))
			view.SetCard(cnt)
			printed += show
		}
	}
	return nil
}

// printBudget clips a chunk's row count to what remains of the output cap.
func printBudget(cnt, printed, max int) int {
	if remain := max - printed; remain < cnt {
		return remain
	}
	return cnt
}

// unscaledExec maps decimal columns through unscaled_value and passes the
// rest along untouched.
func unscaledExec(types []common.LType) (*compute.ExprExec, error) {
	exprs := make([]*compute.Expr, len(types))
	for i, typ := range types {
		col := compute.NewColumnExpr(
			compute.ColumnBind{0, uint64(i)}, typ, fmt.Sprintf("col%d", i))
		if typ.Id == common.LTID_DECIMAL {
			fun, err := compute.NewFuncExpr(compute.FuncUnscaledValue, col)
			if err != nil {
				return nil, err
			}
			exprs[i] = fun
		} else {
			exprs[i] = col
		}
	}
	return compute.NewExprExec(exprs...)
}

func unscaledTypes(types []common.LType) []common.LType {
	out := common.CopyLTypes(types...)
	for i := range out {
		if out[i].Id == common.LTID_DECIMAL {
			out[i] = common.BigintType()
		}
	}
	return out
}

var defCfgFilePaths = []string{".", "etc"}
var cfgFileName = "aggbench.toml"

func loadConfig() {
	for _, dirPath := range defCfgFilePaths {
		fpath := filepath.Join(dirPath, cfgFileName)
		if util.FileIsValid(fpath) {
			viper.SetConfigFile(fpath)
			err := viper.ReadInConfig()
			if err != nil {
				util.Error("viper load config file failed",
					zap.String("fpath", fpath),
					zap.Error(err))
				continue
			}
			return
		}
	}
	util.Warn("no config file found, flags and defaults apply",
		zap.String("name", cfgFileName),
		zap.Strings("searched", defCfgFilePaths))
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
